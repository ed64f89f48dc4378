package output

import (
	"encoding/json"
	"io"

	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

func (f *JSONFormatter) encode(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// FormatReport outputs the report as JSON
func (f *JSONFormatter) FormatReport(report model.SynchronizationReport, w io.Writer) error {
	return f.encode(report, w)
}

// FormatPullRequests outputs pull requests as a JSON array
func (f *JSONFormatter) FormatPullRequests(prs []model.PullRequest, w io.Writer) error {
	if prs == nil {
		prs = []model.PullRequest{}
	}
	return f.encode(prs, w)
}

// FormatIssues outputs issues as a JSON array
func (f *JSONFormatter) FormatIssues(issues []model.Issue, w io.Writer) error {
	if issues == nil {
		issues = []model.Issue{}
	}
	return f.encode(issues, w)
}

// FormatSyncResult outputs a single issue result as JSON
func (f *JSONFormatter) FormatSyncResult(result reconcile.IssueSyncResult, w io.Writer) error {
	return f.encode(result, w)
}

// FormatBatchResult outputs a repository-wide result as JSON
func (f *JSONFormatter) FormatBatchResult(result reconcile.BatchResult, w io.Writer) error {
	if result.Failed == nil {
		result.Failed = []int{}
	}
	return f.encode(result, w)
}

// FormatConnectivity outputs the auth check as JSON
func (f *JSONFormatter) FormatConnectivity(result auth.ConnectivityResult, w io.Writer) error {
	return f.encode(result, w)
}
