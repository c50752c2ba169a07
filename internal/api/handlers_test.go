package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-notification-service/internal/config"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/realtime"
)

type fakeAlertStore struct {
	alerts      map[int64]*models.Alert
	recordErr   error
	loadCalls   int
	recordCalls int
}

func (f *fakeAlertStore) LoadAlertsForDispatch(_ context.Context, userID int64, alertIDs []int64) ([]models.Alert, error) {
	f.loadCalls++
	var out []models.Alert
	for _, id := range alertIDs {
		if a, ok := f.alerts[id]; ok && a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) RecordDelivery(_ context.Context, userID int64, alertIDs []int64, channels []string, ts time.Time) error {
	f.recordCalls++
	if f.recordErr != nil {
		return f.recordErr
	}
	for _, id := range alertIDs {
		a, ok := f.alerts[id]
		if !ok || a.UserID != userID {
			continue
		}
		if a.SourceData == nil {
			a.SourceData = map[string]any{}
		}
		// Merge, never replace: pre-existing keys survive.
		a.SourceData["lastNotified"] = ts.Format(time.RFC3339Nano)
		a.SourceData["notificationChannels"] = channels
	}
	return nil
}

func (f *fakeAlertStore) GetAlertsByUserID(_ context.Context, userID int64, _, _ int) ([]models.Alert, int, error) {
	var out []models.Alert
	for _, a := range f.alerts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

type fakeDispatcher struct {
	result models.DeliveryResult
	calls  int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ models.User, _ []models.Alert, _ []string, _, _ string) models.DeliveryResult {
	f.calls++
	return f.result
}

type fakeResolver struct{}

func (fakeResolver) GetUserByToken(_ context.Context, token string) (models.User, error) {
	if token != "good-token" {
		return models.User{}, errors.New("user not found")
	}
	return models.User{ID: 7, Email: "owner@test.local", Phone: "+15557654321"}, nil
}

func newTestRouter(store *fakeAlertStore, dispatcher *fakeDispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var cfg config.Config
	cfg.API.BasePath = "/api/v0"
	cfg.API.RateLimitPerMinute = 1000

	h := NewHandler(store, dispatcher, realtime.NewHub(logger), logger)
	return NewRouter(h, fakeResolver{}, logger, cfg)
}

func seedStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: map[int64]*models.Alert{
		1: {ID: 1, UserID: 7, Severity: "critical", Title: "Pricing page changed",
			SourceData: map[string]any{"detector": "pricing-v2"},
			Competitor: &models.Competitor{ID: 3, Name: "Acme Corp"}},
		2: {ID: 2, UserID: 7, Severity: "warning", Title: "New blog post"},
		9: {ID: 9, UserID: 99, Severity: "info", Title: "Someone else's alert"},
	}}
}

func doNotify(router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v0/alerts/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNotifyRejectsUnauthenticated(t *testing.T) {
	router := newTestRouter(seedStore(), &fakeDispatcher{})

	w := doNotify(router, "", `{"alertIds":[1],"channels":["email"]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doNotify(router, "bad-token", `{"alertIds":[1],"channels":["email"]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotifyValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing alertIds", `{"channels":["email"]}`},
		{"empty alertIds", `{"alertIds":[],"channels":["email"]}`},
		{"too many alertIds", func() string {
			ids := make([]string, 51)
			for i := range ids {
				ids[i] = "1"
			}
			return `{"alertIds":[` + strings.Join(ids, ",") + `],"channels":["email"]}`
		}()},
		{"non-positive alert id", `{"alertIds":[0],"channels":["email"]}`},
		{"empty channels", `{"alertIds":[1],"channels":[]}`},
		{"unknown channel", `{"alertIds":[1],"channels":["carrier-pigeon"]}`},
		{"bad priority", `{"alertIds":[1],"channels":["email"],"priority":"extreme"}`},
		{"bad template", `{"alertIds":[1],"channels":["email"],"template":"haiku"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore()
			dispatcher := &fakeDispatcher{}
			router := newTestRouter(store, dispatcher)

			w := doNotify(router, "good-token", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 0, store.loadCalls, "validation must reject before any store access")
			assert.Equal(t, 0, dispatcher.calls, "validation must reject before dispatch")
		})
	}
}

func TestNotifyUnmatchedAlertsAreNotFound(t *testing.T) {
	store := seedStore()
	dispatcher := &fakeDispatcher{}
	router := newTestRouter(store, dispatcher)

	// Alert 9 exists but belongs to another user; 42 does not exist.
	w := doNotify(router, "good-token", `{"alertIds":[9,42],"channels":["email"]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, dispatcher.calls, "no dispatch may run without matching alerts")
	assert.Equal(t, 0, store.recordCalls)
}

func TestNotifySuccessRecordsDeliveryAndEchoesAlerts(t *testing.T) {
	store := seedStore()
	dispatcher := &fakeDispatcher{result: models.DeliveryResult{
		Success:   true,
		Delivered: []string{"email", "push"},
		Errors:    []string{"SMS delivery failed: SMS service not configured"},
	}}
	router := newTestRouter(store, dispatcher)

	w := doNotify(router, "good-token", `{"alertIds":[1,2],"channels":["email","push","sms"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.NotifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"email", "push"}, resp.Delivered)
	assert.Equal(t, []string{"SMS delivery failed: SMS service not configured"}, resp.Errors)
	assert.False(t, resp.NotifiedAt.IsZero())

	require.Len(t, resp.Alerts, 2)
	assert.Equal(t, int64(1), resp.Alerts[0].ID)
	assert.Equal(t, "Pricing page changed", resp.Alerts[0].Title)
	assert.Equal(t, "Acme Corp", resp.Alerts[0].CompetitorName)
	assert.Equal(t, "Unknown", resp.Alerts[1].CompetitorName)

	// Delivery metadata is merged into source_data, preserving existing keys.
	assert.Equal(t, 1, store.recordCalls)
	sd := store.alerts[1].SourceData
	assert.Equal(t, "pricing-v2", sd["detector"])
	assert.Equal(t, []string{"email", "push"}, sd["notificationChannels"])
	assert.NotEmpty(t, sd["lastNotified"])
}

func TestNotifyTotalChannelFailureIsStillOK(t *testing.T) {
	store := seedStore()
	dispatcher := &fakeDispatcher{result: models.DeliveryResult{
		Success:   false,
		Delivered: []string{},
		Errors:    []string{"Email delivery failed: User email address not available"},
	}}
	router := newTestRouter(store, dispatcher)

	w := doNotify(router, "good-token", `{"alertIds":[1],"channels":["email"]}`)

	// Channel failure is a business outcome, not a transport error.
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.NotifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Delivered)
	assert.Equal(t, []string{"Email delivery failed: User email address not available"}, resp.Errors)
}

func TestNotifyBookkeepingFailureFailsRequest(t *testing.T) {
	store := seedStore()
	store.recordErr = errors.New("db down")
	dispatcher := &fakeDispatcher{result: models.DeliveryResult{
		Success: true, Delivered: []string{"email"}, Errors: []string{},
	}}
	router := newTestRouter(store, dispatcher)

	w := doNotify(router, "good-token", `{"alertIds":[1],"channels":["email"]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetAlerts(t *testing.T) {
	router := newTestRouter(seedStore(), &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v0/alerts", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}
