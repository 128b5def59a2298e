package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"parkgo/status"
)

var (
	green = lipgloss.Color("76")
	red   = lipgloss.Color("204")
	dim   = lipgloss.Color("243")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	mutedStyle   = lipgloss.NewStyle().Foreground(dim)
)

// renderRecord formats a status record for the terminal.
func renderRecord(rec status.Record) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(rec.Summary))
	b.WriteString("\n")

	for i, o := range rec.Outcomes {
		mark := successStyle.Render("✓")
		if !o.Succeeded {
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(&b, "  %d. %s %s", i+1, mark, o.Message)
		if o.Detail != "" {
			b.WriteString(" " + mutedStyle.Render("("+o.Detail+")"))
		}
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("progress %d%% | elapsed %.2fs", rec.ProgressPercent, rec.ElapsedSeconds)
	if rec.EstimatedRemainingSeconds > 0 {
		footer += fmt.Sprintf(" | remaining ~%ds", rec.EstimatedRemainingSeconds)
	}
	if rec.RunID != "" {
		footer += " | run " + rec.RunID
	}
	b.WriteString(mutedStyle.Render(footer))
	b.WriteString("\n")

	if rec.ErrorMessage != nil {
		b.WriteString(errorStyle.Render("error: " + *rec.ErrorMessage))
		b.WriteString("\n")
	}
	return b.String()
}
