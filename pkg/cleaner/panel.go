package cleaner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const clearScreen = "\033[H\033[2J"

var (
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// FormatElapsed renders a duration as "Xm Ys".
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// RenderStatus draws the running panel.
func RenderStatus(s Stats, hint string) string {
	title := "Watch Later Cleaner - running"
	if s.Phase == PhasePaused {
		title = "Watch Later Cleaner - paused"
	}

	lines := []string{
		titleStyle.Render(title),
		"",
		row("Visible", humanize.Comma(int64(s.Visible))),
		row("Deleted", humanize.Comma(int64(s.Deleted))),
		row("Errors", humanize.Comma(int64(s.Errors))),
		row("Retries", humanize.Comma(int64(s.Retries))),
		row("Elapsed", FormatElapsed(s.Elapsed)),
		row("Rate", humanize.CommafWithDigits(s.PerHour, 0)+" / hour"),
	}
	if s.Phase == PhasePaused {
		lines = append(lines, "", pausedStyle.Render(fmt.Sprintf("Paused after %d consecutive errors", s.ConsecutiveErrors)))
	}
	if hint != "" {
		lines = append(lines, "", hintStyle.Render(hint))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// RenderSummary draws the final panel emitted by Stop.
func RenderSummary(sum Summary, hint string) string {
	lines := []string{
		titleStyle.Render("Watch Later Cleaner - stopped (" + string(sum.Reason) + ")"),
		"",
		row("Deleted", humanize.Comma(int64(sum.Deleted))),
		row("Errors", humanize.Comma(int64(sum.Errors))),
		row("Retries", humanize.Comma(int64(sum.Retries))),
		row("Active time", FormatElapsed(sum.Elapsed)),
		row("Wall time", FormatElapsed(sum.Wall())),
		row("Rate", humanize.CommafWithDigits(sum.PerHour, 0)+" / hour"),
	}
	if hint != "" {
		lines = append(lines, "", hintStyle.Render(hint))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func drawPanel(w io.Writer, clear bool, panel string) {
	if clear {
		fmt.Fprint(w, clearScreen)
	}
	fmt.Fprintln(w, panel)
}
