package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/narrative"
)

//go:embed report.html.tmpl
var reportTemplateSrc string

var reportTemplate = template.Must(
	template.New("report").Funcs(template.FuncMap{
		"para":    paragraphs,
		"screens": ScreensLine,
	}).Parse(reportTemplateSrc),
)

// templateData is the view model for the HTML report.
type templateData struct {
	DateLong string
	Report   *aggregate.Report
	Analysis *narrative.Analysis
}

// paragraphs HTML-escapes narrative text and turns blank-line separated
// chunks into <p> blocks, single newlines into <br>.
func paragraphs(s string) template.HTML {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	var b strings.Builder
	for _, chunk := range strings.Split(s, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		escaped := template.HTMLEscapeString(chunk)
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(escaped, "\n", "<br>"))
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}

// RenderHTML builds the HTML body of the report email.
func RenderHTML(report *aggregate.Report, analysis *narrative.Analysis, day time.Time) (string, error) {
	if analysis == nil {
		analysis = narrative.Placeholder()
	}
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, templateData{
		DateLong: day.Format("Monday, January 2, 2006"),
		Report:   report,
		Analysis: analysis,
	})
	if err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}

// RenderText builds the plain-text alternative body.
func RenderText(report *aggregate.Report, analysis *narrative.Analysis, day time.Time) string {
	if analysis == nil {
		analysis = narrative.Placeholder()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Report — %s\n\n", day.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "METRICS\n")
	fmt.Fprintf(&b, "New Signups: %d\n", report.NewSignupCount)
	fmt.Fprintf(&b, "Daily Active Users: %d\n", report.TotalActiveUsers)
	fmt.Fprintf(&b, "Cards Linked: %d (success rate %s)\n", report.CardLinkedCount, report.CardLinkSuccessRate)
	fmt.Fprintf(&b, "Banks Linked: %d (success rate %s)\n", report.BankLinkedCount, report.BankLinkSuccessRate)
	fmt.Fprintf(&b, "Autopay Enabled: %d\n", report.AutopayCount)
	fmt.Fprintf(&b, "Avg Session: %.1f min\n", report.AvgSessionMins)
	fmt.Fprintf(&b, "\n--- EXECUTIVE SUMMARY ---\n%s\n", analysis.ExecutiveSummary)
	fmt.Fprintf(&b, "\n--- KEY HIGHLIGHTS ---\n%s\n", analysis.Highlights)
	fmt.Fprintf(&b, "\n--- WATCH LIST ---\n%s\n", analysis.WatchList)
	return b.String()
}

// ScreensLine joins a screen list for table display, "—" when empty.
func ScreensLine(screens []string) string {
	if len(screens) == 0 {
		return "—"
	}
	return strings.Join(screens, ", ")
}
