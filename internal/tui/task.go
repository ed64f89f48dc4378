package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// Task is one line of the progress display.
type Task struct {
	ID       TaskID
	Name     string
	Status   TaskStatus
	Message  string
	Count    int
	Progress float64
	Error    error
}

// NewTask creates a pending task.
func NewTask(id TaskID, name string) Task {
	return Task{ID: id, Name: name, Status: StatusPending}
}

// apply merges an event into the task. Zero fields keep their old value.
func (t Task) apply(e TaskEvent) Task {
	t.Status = e.Status
	if e.Message != "" {
		t.Message = e.Message
	}
	if e.Count > 0 {
		t.Count = e.Count
	}
	if e.Progress > 0 {
		t.Progress = e.Progress
	}
	if e.Error != nil {
		t.Error = e.Error
	}
	return t
}

// View renders the task as a single line.
func (t Task) View(spinnerFrame string, prog progress.Model) string {
	nameStyle := taskNameStyle
	if t.Status == StatusPending || t.Status == StatusSkipped {
		nameStyle = taskDimStyle
	}
	line := fmt.Sprintf("  %s %s", StatusIcon(t.Status, spinnerFrame), nameStyle.Render(t.Name))
	if detail := t.detail(prog); detail != "" {
		line += " " + detail
	}
	if t.Error != nil {
		line += " " + errorStyle.Render(t.Error.Error())
	}
	return line
}

// detail is the progress bar, message or count shown after the name.
func (t Task) detail(prog progress.Model) string {
	if t.Status == StatusRunning && t.Progress > 0 {
		bar := fmt.Sprintf("%s %d%%", prog.ViewAs(t.Progress), int(t.Progress*100))
		if t.Message == "" {
			return bar
		}
		return bar + " " + messageStyle.Render("("+t.Message+")")
	}
	if t.Message != "" {
		return messageStyle.Render(t.Message)
	}
	if t.Count > 0 {
		return messageStyle.Render(fmt.Sprintf("(%d)", t.Count))
	}
	return ""
}
