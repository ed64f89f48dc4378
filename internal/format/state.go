package format

import "github.com/spiffcs/linksync/internal/model"

// Marks used next to pull request and issue states.
const (
	MergedMark = "\u2714" // ✔
	OpenMark   = "\u25CB" // ○
	ClosedMark = "\u2716" // ✖
)

// PRStateMark returns the mark for a pull request's display state.
func PRStateMark(pr model.PullRequest) string {
	switch pr.DisplayState() {
	case "merged":
		return MergedMark
	case "open":
		return OpenMark
	default:
		return ClosedMark
	}
}

// StatusLabel returns a short label for a synchronization status.
func StatusLabel(s model.SyncStatus) string {
	switch s {
	case model.StatusSynchronized:
		return "in sync"
	case model.StatusNeedsUpdate:
		return "needs update"
	case model.StatusConflict:
		return "conflict"
	default:
		return string(s)
	}
}
