package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// Format represents the output format
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or markdown)", s)
	}
}

// Formatter renders linksync results.
type Formatter interface {
	FormatReport(report model.SynchronizationReport, w io.Writer) error
	FormatPullRequests(prs []model.PullRequest, w io.Writer) error
	FormatIssues(issues []model.Issue, w io.Writer) error
	FormatSyncResult(result reconcile.IssueSyncResult, w io.Writer) error
	FormatBatchResult(result reconcile.BatchResult, w io.Writer) error
	FormatConnectivity(result auth.ConnectivityResult, w io.Writer) error
}

// NewFormatter creates a formatter for the specified format
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}
