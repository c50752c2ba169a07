package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"alert-notification-service/internal/models"
	"alert-notification-service/internal/realtime"
)

// AlertStore is the alert persistence the handlers need.
type AlertStore interface {
	LoadAlertsForDispatch(ctx context.Context, userID int64, alertIDs []int64) ([]models.Alert, error)
	RecordDelivery(ctx context.Context, userID int64, alertIDs []int64, channels []string, ts time.Time) error
	GetAlertsByUserID(ctx context.Context, userID int64, limit, offset int) ([]models.Alert, int, error)
}

// AlertDispatcher runs one multi-channel delivery.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, user models.User, alerts []models.Alert, channels []string, template, priority string) models.DeliveryResult
}

type Handler struct {
	alerts     AlertStore
	dispatcher AlertDispatcher
	hub        *realtime.Hub
	logger     *logrus.Logger
}

func NewHandler(alerts AlertStore, dispatcher AlertDispatcher, hub *realtime.Hub, logger *logrus.Logger) *Handler {
	return &Handler{alerts: alerts, dispatcher: dispatcher, hub: hub, logger: logger}
}

// NotifyAlerts dispatches a batch of the caller's alerts over the requested
// channels. Total channel failure is still a 200: the result body says what
// succeeded and what did not.
func (h *Handler) NotifyAlerts(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req models.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid notify request for user %d: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ApplyDefaults()

	alerts, err := h.alerts.LoadAlertsForDispatch(c.Request.Context(), user.ID, req.AlertIDs)
	if err != nil {
		h.logger.Errorf("Failed to load alerts for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alerts"})
		return
	}
	if len(alerts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No alerts found"})
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), user, alerts, req.Channels, req.Template, req.Priority)

	// Losing the bookkeeping write is an operational fault, unlike a channel
	// failure, so it fails the request.
	notifiedAt := time.Now().UTC()
	if err := h.alerts.RecordDelivery(c.Request.Context(), user.ID, req.AlertIDs, result.Delivered, notifiedAt); err != nil {
		h.logger.Errorf("Failed to record delivery for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record delivery metadata"})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(user.ID, realtime.DeliveryEvent{
			AlertIDs:  req.AlertIDs,
			Delivered: result.Delivered,
			Errors:    result.Errors,
			Timestamp: notifiedAt,
		})
	}

	echo := make([]models.AlertEcho, 0, len(alerts))
	for _, a := range alerts {
		echo = append(echo, models.AlertEcho{
			ID:             a.ID,
			Title:          a.Title,
			Severity:       a.Severity,
			CompetitorName: a.CompetitorName(),
		})
	}

	c.JSON(http.StatusOK, models.NotifyResponse{
		Success:    result.Success,
		Delivered:  result.Delivered,
		Errors:     result.Errors,
		Alerts:     echo,
		NotifiedAt: notifiedAt,
	})
}

// GetAlerts lists the caller's alerts with pagination.
func (h *Handler) GetAlerts(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	alerts, total, err := h.alerts.GetAlertsByUserID(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get alerts for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": total})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocket upgrades a dashboard session and keeps it registered with the
// hub until it closes.
func (h *Handler) WebSocket(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for user %d: %v", user.ID, err)
		return
	}

	h.hub.Add(user.ID, conn)
	defer func() {
		h.hub.Remove(user.ID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
