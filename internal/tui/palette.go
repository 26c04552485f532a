package tui

import "github.com/charmbracelet/lipgloss"

// Palette entries pick a darker shade on light terminal backgrounds.
var (
	ColorInk       = lipgloss.AdaptiveColor{Light: "#2E3440", Dark: "#E5E9F0"}
	ColorDim       = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#7A8291"}
	ColorAccent    = lipgloss.AdaptiveColor{Light: "#B4532A", Dark: "#F2A65A"}
	ColorAccentAlt = lipgloss.AdaptiveColor{Light: "#5E81AC", Dark: "#81A1C1"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#4C7A34", Dark: "#A3BE8C"}
	ColorWarn      = lipgloss.AdaptiveColor{Light: "#9A6B00", Dark: "#EBCB8B"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#A3323A", Dark: "#BF616A"}
)
