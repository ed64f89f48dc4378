package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// ANSI 256 palette.
const (
	colorDim    = lipgloss.Color("240")
	colorText   = lipgloss.Color("252")
	colorMuted  = lipgloss.Color("244")
	colorOK     = lipgloss.Color("46")
	colorFail   = lipgloss.Color("196")
	colorWarn   = lipgloss.Color("214")
	colorAccent = lipgloss.Color("86")
	colorIdent  = lipgloss.Color("220")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	taskNameStyle = fg(colorText)
	taskDimStyle  = fg(colorDim)
	messageStyle  = fg(colorMuted)
	errorStyle    = fg(colorFail)
	warnStyle     = fg(colorWarn)
	spinnerStyle  = fg(colorAccent)
	strategyStyle = fg(colorIdent).Bold(true)
	footerStyle   = fg(colorDim).MarginTop(1)

	iconPending  = fg(colorDim).Render("○")
	iconComplete = fg(colorOK).Render("✓")
	iconError    = fg(colorFail).Render("✗")
	iconSkipped  = fg(colorDim).Render("-")
	iconDryRun   = fg(colorWarn).Render("~")
)

// StatusIcon returns the icon for a task status. Running tasks show the
// current spinner frame.
func StatusIcon(status TaskStatus, spinnerFrame string) string {
	switch status {
	case StatusRunning:
		return spinnerStyle.Render(spinnerFrame)
	case StatusComplete:
		return iconComplete
	case StatusError:
		return iconError
	case StatusSkipped:
		return iconSkipped
	}
	return iconPending
}

// outcomeIcon returns the icon for a reconciled issue.
func outcomeIcon(outcome string) string {
	switch outcome {
	case reconcile.OutcomeClosed:
		return iconComplete
	case reconcile.OutcomeDryRun:
		return iconDryRun
	case reconcile.OutcomeFailed:
		return iconError
	}
	return iconSkipped
}
