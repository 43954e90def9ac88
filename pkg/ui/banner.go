// Package ui renders the terminal chrome for the redpen CLI: the startup
// banner, progress lines, and outcome summaries.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/redpen-ai/redpen/pkg/types"
)

const logo = `
██████╗ ███████╗██████╗ ██████╗ ███████╗███╗   ██╗
██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔════╝████╗  ██║
██████╔╝█████╗  ██║  ██║██████╔╝█████╗  ██╔██╗ ██║
██╔══██╗██╔══╝  ██║  ██║██╔═══╝ ██╔══╝  ██║╚██╗██║
██║  ██║███████╗██████╔╝██║     ███████╗██║ ╚████║
╚═╝  ╚═╝╚══════╝╚═════╝ ╚═╝     ╚══════╝╚═╝  ╚═══╝`

var (
	logoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Banner renders the startup header.
func Banner(version, model string) string {
	var b strings.Builder
	b.WriteString(logoStyle.Render(strings.TrimPrefix(logo, "\n")))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("redpen v%s · content agent for Xiaohongshu · model %s", version, model)))
	b.WriteString("\n")
	return b.String()
}

// EventLine renders one progress event for the terminal, or an empty string
// for events that should stay quiet.
func EventLine(e types.Event) string {
	switch e.Type {
	case types.EventStatusChanged:
		return statusStyle.Render("» " + e.Detail)
	case types.EventToolCall:
		return subtitleStyle.Render("  tool: " + e.Detail)
	case types.EventWarning:
		return warnStyle.Render("! " + e.Detail)
	default:
		return ""
	}
}

// Outcome renders the terminal summary for a finished task.
func Outcome(outcome *types.TaskOutcome) string {
	switch outcome.Status {
	case types.OutcomeDone:
		return okStyle.Render("✔ task complete")
	case types.OutcomeCancelled:
		return warnStyle.Render("∅ task cancelled: " + outcome.Reason)
	default:
		return failStyle.Render(fmt.Sprintf("✘ task failed (%s): %s", outcome.Kind, outcome.Reason))
	}
}
