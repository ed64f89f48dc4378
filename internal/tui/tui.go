package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiffcs/linksync/internal/reconcile"
	"golang.org/x/term"
)

// Run starts the TUI and blocks until it completes.
func Run(events <-chan Event, opts ...ModelOption) error {
	model := NewModel(events, opts...)
	// Render inline rather than on the alt screen.
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

// ciEnvVars mark non-interactive CI runs.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "TRAVIS", "CIRCLECI", "GITLAB_CI", "BUILDKITE"}

// ShouldUseTUI reports whether stdout is an interactive terminal outside CI.
func ShouldUseTUI() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	for _, v := range ciEnvVars {
		if os.Getenv(v) != "" {
			return false
		}
	}
	return true
}

// SendEvent delivers e without blocking. Events are dropped when ch is nil
// or full.
func SendEvent(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	default:
	}
}

// SendTaskEvent builds and sends a TaskEvent.
func SendTaskEvent(ch chan<- Event, task TaskID, status TaskStatus, opts ...TaskEventOption) {
	e := TaskEvent{Task: task, Status: status}
	for _, opt := range opts {
		opt(&e)
	}
	SendEvent(ch, e)
}

// TaskEventOption sets an optional TaskEvent field.
type TaskEventOption func(*TaskEvent)

// WithMessage sets the status text, e.g. "12/30".
func WithMessage(msg string) TaskEventOption {
	return func(e *TaskEvent) { e.Message = msg }
}

// WithCount sets the number of items handled.
func WithCount(count int) TaskEventOption {
	return func(e *TaskEvent) { e.Count = count }
}

// WithProgress sets completion in [0, 1].
func WithProgress(progress float64) TaskEventOption {
	return func(e *TaskEvent) { e.Progress = progress }
}

// WithError marks the failure shown next to the task.
func WithError(err error) TaskEventOption {
	return func(e *TaskEvent) { e.Error = err }
}

// SyncProgress adapts the engine's per-issue progress callback to TUI
// events on ch.
func SyncProgress(ch chan<- Event) reconcile.ProgressFunc {
	return func(result reconcile.IssueSyncResult, completed, total int) {
		outcome := reconcile.OutcomeNoop
		switch {
		case !result.Success:
			outcome = reconcile.OutcomeFailed
		case result.Closed && result.DryRun:
			outcome = reconcile.OutcomeDryRun
		case result.Closed:
			outcome = reconcile.OutcomeClosed
		}
		SendEvent(ch, IssueEvent{Number: result.IssueNumber, Outcome: outcome, CitedPR: result.CitedPR})

		var progress float64
		if total > 0 {
			progress = float64(completed) / float64(total)
		}
		SendTaskEvent(ch, TaskReconcile, StatusRunning,
			WithProgress(progress),
			WithMessage(fmt.Sprintf("%d/%d", completed, total)))
	}
}
