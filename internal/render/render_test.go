package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-notification-service/internal/models"
)

func makeAlerts(n int, severities ...string) []models.Alert {
	alerts := make([]models.Alert, 0, n)
	for i := 0; i < n; i++ {
		severity := models.SeverityWarning
		if i < len(severities) {
			severity = severities[i]
		}
		alerts = append(alerts, models.Alert{
			ID:          int64(i + 1),
			UserID:      7,
			Severity:    severity,
			AlertType:   "price_change",
			Title:       "Price drop detected",
			Description: "Competitor lowered their pricing.",
			Competitor:  &models.Competitor{ID: 1, Name: "Acme Corp", Domain: "acme.example"},
		})
	}
	return alerts
}

func TestRenderSummary(t *testing.T) {
	r := New("https://app.example.com/dashboard")

	t.Run("lists at most five alerts and notes the rest", func(t *testing.T) {
		c := r.Render(makeAlerts(8), models.TemplateSummary, "normal")

		assert.Equal(t, "8 new competitor alerts", c.Subject)
		assert.Equal(t, 5, strings.Count(c.HTML, "<li>"))
		assert.Contains(t, c.HTML, "+3 more alerts")
		assert.Contains(t, c.Text, "+3 more alerts")
		assert.Contains(t, c.HTML, "https://app.example.com/dashboard")
	})

	t.Run("singular subject for one alert", func(t *testing.T) {
		c := r.Render(makeAlerts(1), models.TemplateSummary, "normal")
		assert.Equal(t, "1 new competitor alert", c.Subject)
		assert.NotContains(t, c.HTML, "more alert")
	})

	t.Run("truncates long descriptions with ellipsis", func(t *testing.T) {
		alerts := makeAlerts(1)
		alerts[0].Description = strings.Repeat("x", 450)
		c := r.Render(alerts, models.TemplateSummary, "normal")

		assert.Contains(t, c.Text, strings.Repeat("x", 200)+"...")
		assert.NotContains(t, c.Text, strings.Repeat("x", 201))
	})

	t.Run("short descriptions pass through unchanged", func(t *testing.T) {
		c := r.Render(makeAlerts(1), models.TemplateSummary, "normal")
		assert.Contains(t, c.Text, "Competitor lowered their pricing.")
		assert.NotContains(t, c.Text, "pricing....")
	})

	t.Run("missing competitor renders as Unknown", func(t *testing.T) {
		alerts := makeAlerts(1)
		alerts[0].Competitor = nil
		c := r.Render(alerts, models.TemplateSummary, "normal")
		assert.Contains(t, c.HTML, "Unknown")
		assert.Contains(t, c.Text, "Unknown")
	})
}

func TestRenderDetailed(t *testing.T) {
	r := New("https://app.example.com/dashboard")

	t.Run("enumerates every alert with full description", func(t *testing.T) {
		alerts := makeAlerts(8)
		c := r.Render(alerts, models.TemplateDetailed, "normal")

		assert.Equal(t, "Competitor alert report: 8 alerts", c.Subject)
		assert.Equal(t, 8, strings.Count(c.HTML, "<h3>"))
		assert.NotContains(t, c.HTML, "more alert")
		assert.Contains(t, c.HTML, "acme.example")
	})

	t.Run("converts newlines to line breaks in HTML only", func(t *testing.T) {
		alerts := makeAlerts(1)
		alerts[0].Description = "line one\nline two"
		c := r.Render(alerts, models.TemplateDetailed, "normal")

		assert.Contains(t, c.HTML, "line one<br>line two")
		assert.Contains(t, c.Text, "line one\nline two")
	})
}

func TestRenderCriticalOnly(t *testing.T) {
	r := New("https://app.example.com/dashboard")

	t.Run("filters to critical severity", func(t *testing.T) {
		alerts := makeAlerts(3, models.SeverityCritical, models.SeverityInfo, models.SeverityCritical)
		c := r.Render(alerts, models.TemplateCriticalOnly, "normal")

		assert.Equal(t, "2 critical competitor alerts", c.Subject)
		assert.Equal(t, 2, strings.Count(c.HTML, "<li>"))
	})

	t.Run("zero critical alerts renders a well-formed empty body", func(t *testing.T) {
		c := r.Render(makeAlerts(3), models.TemplateCriticalOnly, "normal")

		assert.Equal(t, "0 critical competitor alerts", c.Subject)
		assert.Equal(t, 0, strings.Count(c.HTML, "<li>"))
		assert.Contains(t, c.HTML, "<ul>")
		assert.Contains(t, c.HTML, "</ul>")
		require.NotEmpty(t, c.Text)
	})
}

func TestSubjectPriorityPrefix(t *testing.T) {
	r := New("https://app.example.com/dashboard")

	tests := []struct {
		priority string
		prefix   string
	}{
		{"urgent", "[URGENT] "},
		{"high", "[Important] "},
		{"normal", ""},
		{"low", ""},
	}
	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			c := r.Render(makeAlerts(2), models.TemplateSummary, tt.priority)
			assert.Equal(t, tt.prefix+"2 new competitor alerts", c.Subject)
		})
	}
}

func TestPushWording(t *testing.T) {
	t.Run("critical presence takes precedence over counts", func(t *testing.T) {
		alerts := makeAlerts(4, models.SeverityInfo, models.SeverityCritical)
		title, body := PushWording(alerts)

		assert.Equal(t, "Critical competitor alert", title)
		assert.Contains(t, body, "1 critical competitor alert require")
	})

	t.Run("count wording without criticals", func(t *testing.T) {
		title, body := PushWording(makeAlerts(3))
		assert.Equal(t, "New competitor alerts", title)
		assert.Contains(t, body, "3 new competitor alerts")
	})
}

func TestSMSWording(t *testing.T) {
	t.Run("critical wording", func(t *testing.T) {
		body := SMSWording(makeAlerts(2, models.SeverityCritical, models.SeverityCritical))
		assert.Contains(t, body, "URGENT: 2 critical competitor alerts")
	})

	t.Run("generic count wording", func(t *testing.T) {
		body := SMSWording(makeAlerts(2))
		assert.Contains(t, body, "You have 2 new competitor alerts")
		assert.NotContains(t, body, "URGENT")
	})
}
