package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// recentLimit is how many reconciled issues the view lists.
const recentLimit = 5

// Model is the Bubble Tea model for the TUI progress display.
type Model struct {
	tasks          []Task
	spinner        spinner.Model
	progress       progress.Model
	events         <-chan Event
	done           bool
	strategy       string
	closed         int
	failed         int
	recent         []IssueEvent
	windowWidth    int
	rateLimited    bool
	rateLimitReset time.Time
	now            func() time.Time
}

// doneMsg signals that all events have been processed.
type doneMsg struct{}

// ModelOption is a functional option for configuring a Model.
type ModelOption func(*Model)

// WithTasks sets the tasks to display in the TUI.
func WithTasks(tasks []Task) ModelOption {
	return func(m *Model) {
		m.tasks = tasks
	}
}

// WithClock sets the clock used for the rate limit countdown.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		m.now = now
	}
}

// SyncTasks returns the task list for a repository-wide sync.
func SyncTasks() []Task {
	return []Task{
		NewTask(TaskAuth, "Authenticating"),
		NewTask(TaskFetch, "Fetching issues and pull requests"),
		NewTask(TaskReconcile, "Reconciling issues"),
	}
}

// ReportTasks returns the task list for the report command.
func ReportTasks() []Task {
	return []Task{
		NewTask(TaskAuth, "Authenticating"),
		NewTask(TaskReport, "Building report"),
	}
}

// NewModel creates a new TUI model.
func NewModel(events <-chan Event, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	p := progress.New(
		progress.WithScaledGradient("#60a5fa", "#1e3a8a"),
		progress.WithWidth(25),
		progress.WithoutPercentage(),
	)

	m := Model{
		tasks:    SyncTasks(),
		spinner:  s,
		progress: p,
		events:   events,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case TaskEvent:
		var cmd tea.Cmd
		m, cmd = m.updateTask(msg)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case IssueEvent:
		m = m.recordIssue(msg)
		return m, waitForEvent(m.events)

	case RateLimitEvent:
		m.rateLimited = msg.Limited
		m.rateLimitReset = msg.ResetAt
		return m, waitForEvent(m.events)

	case DoneEvent, doneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// updateTask applies e to its task. The auth task reports the token
// strategy in its completion message.
func (m Model) updateTask(e TaskEvent) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for i := range m.tasks {
		if m.tasks[i].ID != e.Task {
			continue
		}
		m.tasks[i] = m.tasks[i].apply(e)
		if e.Progress > 0 {
			cmd = m.progress.SetPercent(e.Progress)
		}
		if e.Task == TaskAuth && e.Status == StatusComplete && e.Message != "" {
			m.strategy = e.Message
		}
		break
	}
	return m, cmd
}

func (m Model) recordIssue(e IssueEvent) Model {
	switch e.Outcome {
	case reconcile.OutcomeClosed, reconcile.OutcomeDryRun:
		m.closed++
	case reconcile.OutcomeFailed:
		m.failed++
	default:
		return m
	}
	m.recent = append(m.recent, e)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}
	return m
}

// View renders the model.
func (m Model) View() string {
	var s strings.Builder

	for _, task := range m.tasks {
		if task.ID == TaskAuth {
			switch task.Status {
			case StatusComplete:
				if m.strategy != "" {
					fmt.Fprintf(&s, "  %s Authenticated with %s credentials\n", iconComplete, strategyStyle.Render(m.strategy))
					continue
				}
				fallthrough
			case StatusRunning:
				fmt.Fprintf(&s, "  %s Authenticating...\n", spinnerStyle.Render(m.spinner.View()))
			case StatusError:
				fmt.Fprintf(&s, "  %s Authenticating %s\n", iconError, errorStyle.Render(task.Error.Error()))
			default:
				s.WriteString(task.View(m.spinner.View(), m.progress) + "\n")
			}
			continue
		}
		s.WriteString(task.View(m.spinner.View(), m.progress) + "\n")
	}

	if m.closed > 0 || m.failed > 0 {
		s.WriteString(messageStyle.Render(fmt.Sprintf("\n  %d closed, %d failed", m.closed, m.failed)) + "\n")
		for _, e := range m.recent {
			line := fmt.Sprintf("    %s #%d", outcomeIcon(e.Outcome), e.Number)
			if e.CitedPR > 0 {
				line += " " + messageStyle.Render(fmt.Sprintf("(PR #%d)", e.CitedPR))
			}
			s.WriteString(line + "\n")
		}
	}

	if m.rateLimited {
		duration := m.rateLimitReset.Sub(m.now()).Round(time.Second)
		if duration > 0 {
			s.WriteString(warnStyle.Render(fmt.Sprintf("\n  Rate limited - waiting for reset in %s\n", duration)))
		}
	}

	// Only show cancel hint while running
	if !m.done {
		s.WriteString(footerStyle.Render("\n  Press Ctrl+C to cancel"))
	}
	s.WriteString("\n")

	return s.String()
}

// waitForEvent creates a command that waits for the next event.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return event
	}
}
