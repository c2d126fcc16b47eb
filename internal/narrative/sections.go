package narrative

import "strings"

const (
	sectionExecutiveSummary = "EXECUTIVE SUMMARY"
	sectionHighlights       = "KEY HIGHLIGHTS"
	sectionWatchList        = "WATCH LIST"
)

// splitSections splits the model response into its named sections.
// A header line is the section name alone, possibly wrapped in markdown
// emphasis or heading markers. "---" divider lines are dropped.
func splitSections(text string) map[string]string {
	sections := make(map[string]string)

	var (
		current string
		lines   []string
	)
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(lines, "\n"))
		}
		lines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.Trim(strings.TrimSpace(line), "*# ")

		switch stripped {
		case sectionExecutiveSummary, sectionHighlights, sectionWatchList:
			flush()
			current = stripped
		case "---":
			// divider
		default:
			lines = append(lines, line)
		}
	}
	flush()

	return sections
}
