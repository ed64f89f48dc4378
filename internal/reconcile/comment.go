package reconcile

import (
	"fmt"
	"strings"

	"github.com/spiffcs/linksync/internal/model"
)

// SynchronizationComment renders the note posted when an issue is closed.
// The cited PR is listed first, followed by every other related PR.
func SynchronizationComment(issue model.Issue, cited model.PullRequest, related []model.PullRequest) string {
	var sb strings.Builder
	sb.WriteString("**Automated issue synchronization**\n\n")
	fmt.Fprintf(&sb, "This issue was closed because pull request #%d was merged.\n\n", cited.Number)
	sb.WriteString("Related pull requests:\n")

	writePR := func(pr model.PullRequest) {
		fmt.Fprintf(&sb, "- %s: #%d - %s\n", prStatusLabel(pr), pr.Number, pr.Title)
	}
	writePR(cited)
	for _, pr := range related {
		if pr.Number != cited.Number {
			writePR(pr)
		}
	}

	fmt.Fprintf(&sb, "\n_Posted by linksync to keep issue #%d consistent with its pull requests._\n", issue.Number)
	return sb.String()
}

func prStatusLabel(pr model.PullRequest) string {
	switch {
	case pr.Merged:
		return "Merged"
	case pr.IsOpen():
		return "Open"
	default:
		return "Closed"
	}
}
