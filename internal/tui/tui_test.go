package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spiffcs/linksync/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskIDsDistinct(t *testing.T) {
	ids := []TaskID{TaskAuth, TaskFetch, TaskReconcile, TaskReport}
	seen := make(map[TaskID]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate task ID: %d", id)
		}
		seen[id] = true
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask(TaskFetch, "Fetching issues")
	assert.Equal(t, TaskFetch, task.ID)
	assert.Equal(t, "Fetching issues", task.Name)
	assert.Equal(t, StatusPending, task.Status)
}

func TestTaskView(t *testing.T) {
	prog := progress.New(progress.WithWidth(10), progress.WithoutPercentage())
	tests := []struct {
		name string
		task Task
		want []string
	}{
		{
			name: "running with progress",
			task: Task{Name: "Reconciling", Status: StatusRunning, Progress: 0.5, Message: "5/10"},
			want: []string{"Reconciling", "50%", "(5/10)"},
		},
		{
			name: "complete with count",
			task: Task{Name: "Fetching", Status: StatusComplete, Count: 42},
			want: []string{"Fetching", "(42)"},
		},
		{
			name: "error",
			task: Task{Name: "Fetching", Status: StatusError, Error: errors.New("boom")},
			want: []string{"boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.task.View(">", prog)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestSendEvent(t *testing.T) {
	ch := make(chan Event, 1)
	SendEvent(ch, TaskEvent{Task: TaskAuth, Status: StatusComplete})

	received := <-ch
	te, ok := received.(TaskEvent)
	require.True(t, ok)
	assert.Equal(t, TaskAuth, te.Task)

	// A full channel drops instead of blocking.
	SendEvent(ch, TaskEvent{})
	SendEvent(ch, TaskEvent{})
	assert.Len(t, ch, 1)

	SendEvent(nil, TaskEvent{})
}

func TestSendTaskEventOptions(t *testing.T) {
	ch := make(chan Event, 1)
	testErr := errors.New("test error")

	SendTaskEvent(ch, TaskReport, StatusError,
		WithMessage("building"),
		WithCount(42),
		WithProgress(0.75),
		WithError(testErr),
	)

	te, ok := (<-ch).(TaskEvent)
	require.True(t, ok)
	assert.Equal(t, TaskReport, te.Task)
	assert.Equal(t, "building", te.Message)
	assert.Equal(t, 42, te.Count)
	assert.Equal(t, 0.75, te.Progress)
	assert.Same(t, testErr, te.Error)
}

func TestSyncProgress(t *testing.T) {
	ch := make(chan Event, 10)
	onProgress := SyncProgress(ch)

	onProgress(reconcile.IssueSyncResult{IssueNumber: 4, Success: true, Closed: true, CitedPR: 9}, 1, 4)
	onProgress(reconcile.IssueSyncResult{IssueNumber: 5}, 2, 4)

	var issues []IssueEvent
	var last TaskEvent
	close(ch)
	for e := range ch {
		switch e := e.(type) {
		case IssueEvent:
			issues = append(issues, e)
		case TaskEvent:
			last = e
		}
	}
	require.Len(t, issues, 2)
	assert.Equal(t, IssueEvent{Number: 4, Outcome: reconcile.OutcomeClosed, CitedPR: 9}, issues[0])
	assert.Equal(t, reconcile.OutcomeFailed, issues[1].Outcome)
	assert.Equal(t, TaskReconcile, last.Task)
	assert.Equal(t, "2/4", last.Message)
	assert.Equal(t, 0.5, last.Progress)
}

func TestModelUpdate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewModel(make(chan Event), WithClock(func() time.Time { return now }))

	next, _ := m.Update(TaskEvent{Task: TaskAuth, Status: StatusComplete, Message: "app"})
	m = next.(Model)
	next, _ = m.Update(IssueEvent{Number: 3, Outcome: reconcile.OutcomeClosed, CitedPR: 8})
	m = next.(Model)
	next, _ = m.Update(IssueEvent{Number: 4, Outcome: reconcile.OutcomeFailed})
	m = next.(Model)
	next, _ = m.Update(IssueEvent{Number: 5, Outcome: reconcile.OutcomeNoop})
	m = next.(Model)
	next, _ = m.Update(RateLimitEvent{Limited: true, ResetAt: now.Add(90 * time.Second)})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "Authenticated with")
	assert.Contains(t, view, "app")
	assert.Contains(t, view, "1 closed, 1 failed")
	assert.Contains(t, view, "#3")
	assert.NotContains(t, view, "#5")
	assert.Contains(t, view, "reset in 1m30s")
	assert.Contains(t, view, "Ctrl+C")

	next, _ = m.Update(DoneEvent{})
	assert.False(t, strings.Contains(next.(Model).View(), "Ctrl+C"))
}

func TestRecentIssuesBounded(t *testing.T) {
	m := NewModel(nil)
	for i := 1; i <= recentLimit+3; i++ {
		m = m.recordIssue(IssueEvent{Number: i, Outcome: reconcile.OutcomeClosed})
	}
	require.Len(t, m.recent, recentLimit)
	assert.Equal(t, 4, m.recent[0].Number)
	assert.Equal(t, recentLimit+3, m.closed)
}

func TestShouldUseTUI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.False(t, ShouldUseTUI())
}

func TestTaskApplyKeepsEarlierFields(t *testing.T) {
	task := NewTask(TaskFetch, "Fetching")
	task = task.apply(TaskEvent{Task: TaskFetch, Status: StatusRunning, Message: "3/10", Progress: 0.3})
	task = task.apply(TaskEvent{Task: TaskFetch, Status: StatusComplete})

	assert.Equal(t, StatusComplete, task.Status)
	assert.Equal(t, "3/10", task.Message)
	assert.InDelta(t, 0.3, task.Progress, 1e-9)
	assert.NoError(t, task.Error)
}

func TestOutcomeIcon(t *testing.T) {
	assert.Equal(t, iconComplete, outcomeIcon(reconcile.OutcomeClosed))
	assert.Equal(t, iconDryRun, outcomeIcon(reconcile.OutcomeDryRun))
	assert.Equal(t, iconError, outcomeIcon(reconcile.OutcomeFailed))
	assert.Equal(t, iconSkipped, outcomeIcon(reconcile.OutcomeNoop))
}
