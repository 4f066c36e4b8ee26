package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	lockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	notStartedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	runningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	completeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	phaseNameStyle = lipgloss.NewStyle().Bold(true).Width(16)
	metricStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingTop(1)
)

// View renders the dashboard: a title bar, one status line per stage, and a
// scrollable detail panel with the extracted metric lines.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("simpipe dashboard"))
	sb.WriteString("  ")
	sb.WriteString(lockStyle.Render(m.lockInfo))
	sb.WriteString("\n\n")

	for _, v := range m.views {
		sb.WriteString(m.statusLine(v))
		sb.WriteString("\n")
	}

	if m.ready {
		sb.WriteString("\n")
		sb.WriteString(m.viewport.View())
	}

	sb.WriteString(helpStyle.Render("r: rescan  •  ↑/↓: scroll  •  q: quit"))
	return sb.String()
}

// statusLine renders one stage's status row.
func (m Model) statusLine(v phaseView) string {
	marker := "  "
	var verdict string

	switch v.verdict {
	case VerdictNotStarted:
		verdict = notStartedStyle.Render(string(v.verdict))
	case VerdictRunning:
		marker = m.spinner.View()
		verdict = runningStyle.Render(string(v.verdict))
	case VerdictComplete:
		verdict = completeStyle.Render("✓ " + string(v.verdict))
	case VerdictFailed:
		verdict = failedStyle.Render("✗ " + string(v.verdict))
	}

	name := phaseNameStyle.Render(fmt.Sprintf("%d. %s", v.phase.ID, v.phase.Name))
	return fmt.Sprintf("%s %s %s", marker, name, verdict)
}

// detailContent builds the viewport body: per-stage metric lines, verbatim
// as they appear in the logs.
func (m Model) detailContent() string {
	var sb strings.Builder
	for _, v := range m.views {
		if len(v.metrics) == 0 {
			continue
		}
		sb.WriteString(phaseNameStyle.Render(v.phase.Name))
		sb.WriteString("\n")
		for _, metric := range v.metrics {
			sb.WriteString(metricStyle.Render(fmt.Sprintf("%s: %s", metric.Label, metric.Line)))
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return metricStyle.Render("no metrics extracted yet")
	}
	return sb.String()
}
