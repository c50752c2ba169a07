package render

import (
	"fmt"
	"html"
	"strings"

	"alert-notification-service/internal/models"
)

const (
	summaryMaxAlerts  = 5
	summaryMaxDescLen = 200
)

// Content is a rendered notification: subject plus an HTML body and its
// plain-text companion for clients without HTML rendering.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// Renderer maps an alert batch to notification content. Rendering is pure:
// no I/O, deterministic for a given input.
type Renderer struct {
	DashboardURL string
}

func New(dashboardURL string) *Renderer {
	return &Renderer{DashboardURL: dashboardURL}
}

// Render produces content for the given template variant. critical_only
// filters the batch down to critical severity first; an empty filtered set
// renders a well-formed body with no alert entries.
func (r *Renderer) Render(alerts []models.Alert, template, priority string) Content {
	var c Content
	switch template {
	case models.TemplateDetailed:
		c = r.renderDetailed(alerts)
	case models.TemplateCriticalOnly:
		var critical []models.Alert
		for _, a := range alerts {
			if a.Severity == models.SeverityCritical {
				critical = append(critical, a)
			}
		}
		c = r.renderCriticalOnly(critical)
	default:
		c = r.renderSummary(alerts)
	}
	c.Subject = subjectPrefix(priority) + c.Subject
	return c
}

func (r *Renderer) renderSummary(alerts []models.Alert) Content {
	subject := fmt.Sprintf("%d new competitor alert%s", len(alerts), plural(len(alerts)))

	var htmlB, textB strings.Builder
	htmlB.WriteString("<h2>Competitor Alerts</h2>\n<ul>\n")
	textB.WriteString("Competitor Alerts\n\n")

	shown := alerts
	if len(shown) > summaryMaxAlerts {
		shown = shown[:summaryMaxAlerts]
	}
	for _, a := range shown {
		desc := truncate(a.Description, summaryMaxDescLen)
		htmlB.WriteString(fmt.Sprintf("<li><strong>%s</strong> — %s [%s]<br>%s</li>\n",
			html.EscapeString(a.Title),
			html.EscapeString(a.CompetitorName()),
			html.EscapeString(a.Severity),
			html.EscapeString(desc)))
		textB.WriteString(fmt.Sprintf("- %s — %s [%s]\n  %s\n", a.Title, a.CompetitorName(), a.Severity, desc))
	}
	htmlB.WriteString("</ul>\n")

	if rest := len(alerts) - len(shown); rest > 0 {
		htmlB.WriteString(fmt.Sprintf("<p>+%d more alert%s</p>\n", rest, plural(rest)))
		textB.WriteString(fmt.Sprintf("\n+%d more alert%s\n", rest, plural(rest)))
	}

	htmlB.WriteString(fmt.Sprintf("<p><a href=\"%s\">View all alerts on your dashboard</a></p>\n", r.DashboardURL))
	textB.WriteString(fmt.Sprintf("\nView all alerts: %s\n", r.DashboardURL))

	return Content{Subject: subject, HTML: htmlB.String(), Text: textB.String()}
}

func (r *Renderer) renderDetailed(alerts []models.Alert) Content {
	subject := fmt.Sprintf("Competitor alert report: %d alert%s", len(alerts), plural(len(alerts)))

	var htmlB, textB strings.Builder
	htmlB.WriteString("<h2>Competitor Alert Report</h2>\n")
	textB.WriteString("Competitor Alert Report\n\n")

	for _, a := range alerts {
		domain := ""
		if a.Competitor != nil {
			domain = a.Competitor.Domain
		}
		htmlB.WriteString(fmt.Sprintf("<h3>%s</h3>\n<p><em>%s (%s) — %s</em></p>\n<p>%s</p>\n",
			html.EscapeString(a.Title),
			html.EscapeString(a.CompetitorName()),
			html.EscapeString(domain),
			html.EscapeString(a.Severity),
			strings.ReplaceAll(html.EscapeString(a.Description), "\n", "<br>")))
		textB.WriteString(fmt.Sprintf("%s\n%s (%s) — %s\n%s\n\n", a.Title, a.CompetitorName(), domain, a.Severity, a.Description))
	}

	htmlB.WriteString(fmt.Sprintf("<p><a href=\"%s\">Open dashboard</a></p>\n", r.DashboardURL))
	textB.WriteString(fmt.Sprintf("Open dashboard: %s\n", r.DashboardURL))

	return Content{Subject: subject, HTML: htmlB.String(), Text: textB.String()}
}

func (r *Renderer) renderCriticalOnly(critical []models.Alert) Content {
	subject := fmt.Sprintf("%d critical competitor alert%s", len(critical), plural(len(critical)))

	var htmlB, textB strings.Builder
	htmlB.WriteString("<h2>Critical Competitor Alerts</h2>\n<ul>\n")
	textB.WriteString("Critical Competitor Alerts\n\n")

	for _, a := range critical {
		htmlB.WriteString(fmt.Sprintf("<li><strong>%s</strong> — %s<br>%s</li>\n",
			html.EscapeString(a.Title),
			html.EscapeString(a.CompetitorName()),
			html.EscapeString(a.Description)))
		textB.WriteString(fmt.Sprintf("- %s — %s\n  %s\n", a.Title, a.CompetitorName(), a.Description))
	}
	htmlB.WriteString("</ul>\n")

	htmlB.WriteString(fmt.Sprintf("<p><a href=\"%s\">Respond now</a></p>\n", r.DashboardURL))
	textB.WriteString(fmt.Sprintf("\nRespond now: %s\n", r.DashboardURL))

	return Content{Subject: subject, HTML: htmlB.String(), Text: textB.String()}
}

// PushWording returns the push notification title and body. The presence of
// any critical alert takes precedence over count wording, regardless of the
// requested template variant.
func PushWording(alerts []models.Alert) (title, body string) {
	critical := models.CriticalCount(alerts)
	if critical > 0 {
		return "Critical competitor alert",
			fmt.Sprintf("%d critical competitor alert%s require immediate attention", critical, plural(critical))
	}
	return "New competitor alerts",
		fmt.Sprintf("You have %d new competitor alert%s", len(alerts), plural(len(alerts)))
}

// SMSWording returns the text-message body, branching on critical presence
// exactly as PushWording does.
func SMSWording(alerts []models.Alert) string {
	critical := models.CriticalCount(alerts)
	if critical > 0 {
		return fmt.Sprintf("URGENT: %d critical competitor alert%s detected. Check your dashboard now.", critical, plural(critical))
	}
	return fmt.Sprintf("You have %d new competitor alert%s. View them on your dashboard.", len(alerts), plural(len(alerts)))
}

func subjectPrefix(priority string) string {
	switch priority {
	case "urgent":
		return "[URGENT] "
	case "high":
		return "[Important] "
	default:
		return ""
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
