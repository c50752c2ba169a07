package models

import "time"

// Alert severities produced by the upstream detection pipeline.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityUrgent   = "urgent"
	SeverityCritical = "critical"
)

// Alert is a detected competitor event owned by a single user. SourceData is
// an opaque JSONB side channel; dispatch only ever merges delivery metadata
// into it, it never replaces existing keys.
type Alert struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	CompetitorID *int64         `json:"competitor_id,omitempty"`
	Severity     string         `json:"severity"`
	AlertType    string         `json:"alert_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	CreatedAt    time.Time      `json:"created_at"`
	IsRead       bool           `json:"is_read"`
	IsArchived   bool           `json:"is_archived"`
	SourceData   map[string]any `json:"source_data,omitempty"`
	Competitor   *Competitor    `json:"competitor,omitempty"`
}

// Competitor metadata joined onto alerts for rendering only.
type Competitor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	ThreatLevel string `json:"threat_level"`
}

// CompetitorName returns the joined competitor's name or "Unknown".
func (a Alert) CompetitorName() string {
	if a.Competitor == nil || a.Competitor.Name == "" {
		return "Unknown"
	}
	return a.Competitor.Name
}

// CriticalCount counts critical-severity alerts in a batch.
func CriticalCount(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
