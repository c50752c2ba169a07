package models

import "time"

// Delivery channels. Results are always assembled in this order.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
	ChannelSMS   = "sms"
)

// Template variants controlling rendered content shape.
const (
	TemplateSummary      = "summary"
	TemplateDetailed     = "detailed"
	TemplateCriticalOnly = "critical_only"
)

// NotifyRequest is the dispatch request body. Binding tags reject malformed
// requests before any orchestration runs.
type NotifyRequest struct {
	AlertIDs []int64  `json:"alertIds" binding:"required,min=1,max=50,dive,gt=0"`
	Channels []string `json:"channels" binding:"required,min=1,dive,oneof=email push sms"`
	Priority string   `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	Template string   `json:"template" binding:"omitempty,oneof=summary detailed critical_only"`
}

// ApplyDefaults fills the optional fields the way the API documents them.
func (r *NotifyRequest) ApplyDefaults() {
	if r.Priority == "" {
		r.Priority = "normal"
	}
	if r.Template == "" {
		r.Template = TemplateSummary
	}
}

// DeliveryResult aggregates per-channel outcomes for one dispatch. Every
// requested channel contributes exactly one disposition: either its name in
// Delivered or one entry in Errors.
type DeliveryResult struct {
	Success   bool     `json:"success"`
	Delivered []string `json:"deliveredChannels"`
	Errors    []string `json:"errors"`
}

// DeliveryMetadata is merged into each alert's source_data after dispatch.
type DeliveryMetadata struct {
	LastNotified         time.Time `json:"lastNotified"`
	NotificationChannels []string  `json:"notificationChannels"`
}

// AlertEcho is the slim alert view returned alongside a delivery result.
type AlertEcho struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	CompetitorName string `json:"competitorName"`
}

// NotifyResponse is the dispatch endpoint's success payload. Total channel
// failure is still a 200: it is a business outcome, not a transport error.
type NotifyResponse struct {
	Success    bool        `json:"success"`
	Delivered  []string    `json:"deliveredChannels"`
	Errors     []string    `json:"errors"`
	Alerts     []AlertEcho `json:"alerts"`
	NotifiedAt time.Time   `json:"notifiedAt"`
}
