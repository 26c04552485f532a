package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"imgzap/internal/processor"
	"imgzap/pkg/imgutil"
)

type SummaryRow struct {
	Label string
	Value string
}

// SummaryRows turns a batch summary into label/value pairs.
func SummaryRows(s processor.Summary) []SummaryRow {
	rows := []SummaryRow{
		{Label: "Jobs", Value: fmt.Sprint(s.Total)},
		{Label: "Converted", Value: fmt.Sprint(s.Converted)},
		{Label: "Skipped (same format)", Value: fmt.Sprint(s.Skipped)},
		{Label: "Failed", Value: fmt.Sprint(s.Failed)},
	}
	if s.Canceled {
		rows = append(rows, SummaryRow{Label: "Not started", Value: fmt.Sprint(s.Total - s.Converted - s.Failed)})
	}
	return rows
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderFailures lists failed jobs as "source -> TARGET  CODE  message".
func RenderFailures(failures []processor.Result) string {
	if len(failures) == 0 {
		return ""
	}
	lines := []string{warnStyle.Render("Failures:")}
	for _, f := range failures {
		code := imgutil.GetCode(f.Err)
		lines = append(lines, fmt.Sprintf("  %s -> %s  %s  %s",
			f.Job.Source, f.Job.Target, errorStyle.Render(string(code)), dimStyle.Render(causeOf(f.Err))))
	}
	return strings.Join(lines, "\n")
}

// causeOf drops the code prefix so the message is not repeated.
func causeOf(err error) string {
	msg := err.Error()
	if code := imgutil.GetCode(err); code != "" {
		msg = strings.TrimPrefix(msg, string(code)+": ")
	}
	return msg
}

// RenderTable aligns cells into columns under a bold header.
func RenderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = style.Render(padRight(cell, widths[i]))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := []string{render(header, headerStyle)}
	for _, row := range rows {
		lines = append(lines, render(row, labelStyle))
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

var (
	valueStyle  = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(ColorAccentAlt).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorError)
)
