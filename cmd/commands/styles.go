package commands

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

const (
	colorPrimary = "#7C3AED" // headings
	colorSuccess = "#10B981"
	colorWarning = "#F59E0B"
	colorError   = "#EF4444"
	colorMuted   = "#6B7280"
	colorBorder  = "#374151"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary)).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess)).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)).Width(10)
)

// newTable returns a rounded table with styled headers.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

// field renders a "label value" line.
func field(label, value string) string {
	return labelStyle.Render(label) + value
}
