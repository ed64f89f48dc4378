package tui

import "time"

// TaskID identifies a task in the TUI progress display.
type TaskID int

const (
	TaskAuth      TaskID = iota // Acquiring an access token
	TaskFetch                   // Snapshotting issues and pull requests
	TaskReconcile               // Closing issues whose pull requests merged
	TaskReport                  // Building the synchronization report
)

// TaskStatus represents the current status of a task.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusRunning
	StatusComplete
	StatusError
	StatusSkipped
)

// Event is the interface for all TUI events.
type Event interface {
	isEvent()
}

// TaskEvent represents an update to a task's status.
type TaskEvent struct {
	Task     TaskID
	Status   TaskStatus
	Message  string  // Optional message (e.g., "12/30" for progress)
	Count    int     // Count of items (e.g., issues fetched)
	Progress float64 // Progress from 0.0 to 1.0
	Error    error   // Error if status is StatusError
}

func (TaskEvent) isEvent() {}

// IssueEvent reports that one issue was reconciled.
type IssueEvent struct {
	Number  int
	Outcome string // one of the reconcile.Outcome values
	CitedPR int
}

func (IssueEvent) isEvent() {}

// RateLimitEvent reports the API quota state.
type RateLimitEvent struct {
	Limited bool
	ResetAt time.Time
}

func (RateLimitEvent) isEvent() {}

// DoneEvent signals that all work is complete.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
