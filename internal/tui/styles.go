// Package tui implements the terminal timeline for `fangio watch`: a Bubble
// Tea app that renders a plan's audit events as they arrive, either streamed
// from a running server or recovered from a persisted run file.
package tui

import "github.com/charmbracelet/lipgloss"

// Event glyphs — convey meaning without relying on color alone.
const (
	glyphCreated  = "◆"
	glyphApproved = "✓"
	glyphStarted  = "▸"
	glyphOutput   = "·"
	glyphError    = "✗"
	glyphFinished = "○"
	glyphDone     = "■"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var footerStyle = lipgloss.NewStyle().
	Foreground(colorDim).
	Padding(0, 1)

var (
	styleCreated  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleApproved = lipgloss.NewStyle().Foreground(colorGreen)
	styleStarted  = lipgloss.NewStyle().Foreground(colorYellow)
	styleOutput   = lipgloss.NewStyle()
	styleError    = lipgloss.NewStyle().Foreground(colorRed)
	styleFinished = lipgloss.NewStyle().Foreground(colorDim)
	styleDone     = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleStepID   = lipgloss.NewStyle().Foreground(colorDim)
)
