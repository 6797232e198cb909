package pipeline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"adspy/types"
)

// Color palette
const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorWarn    = "#FFB86C"
	colorError   = "#FF0000"
	colorInfo    = "#626262"
	colorBorder  = "#874BFD"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarn))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorInfo))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(1, 2)
)

// RenderReport formats a run report for the terminal.
func RenderReport(r *types.RunReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Meta Ads Spy: run complete"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Ads scraped:   %d\n", r.Scraped)
	fmt.Fprintf(&b, "Ads filtered:  %d\n", r.Filtered)
	fmt.Fprintf(&b, "By type:       Video %d, Image %d, Text %d\n",
		r.ByType[types.MediaVideo.String()],
		r.ByType[types.MediaImage.String()],
		r.ByType[types.MediaText.String()])
	b.WriteString("\n")

	b.WriteString(successStyle.Render(fmt.Sprintf("Success:   %d", r.Counts[types.StatusSuccess])))
	b.WriteString("\n")
	b.WriteString(warnStyle.Render(fmt.Sprintf("Degraded:  %d", r.Counts[types.StatusDegraded])))
	b.WriteString("\n")
	b.WriteString(errorStyle.Render(fmt.Sprintf("Skipped:   %d", r.Counts[types.StatusSkipped])))
	b.WriteString("\n\n")

	if r.SheetURL != "" {
		fmt.Fprintf(&b, "Sheet: %s\n", r.SheetURL)
	}
	if r.WriteErr != "" {
		b.WriteString(errorStyle.Render("Write failed: " + r.WriteErr))
		b.WriteString("\n")
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("Run %s in %s", r.RunID, r.Duration)))

	return boxStyle.Render(b.String())
}
