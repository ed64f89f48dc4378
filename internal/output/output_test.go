package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generated = time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)

func sampleReport() model.SynchronizationReport {
	issue := model.Issue{Number: 123, Title: "Crash | on start", State: "open"}
	merged := model.PullRequest{Number: 7, Title: "Fix #123", State: "closed", Merged: true, LinkedIssueNumbers: []int{123}}
	return model.SynchronizationReport{
		Repository:  "acme/api",
		GeneratedAt: generated,
		Summary: model.ReportSummary{
			TotalIssues: 2, TotalPRs: 2, OrphanedPRs: 1, OrphanedIssues: 1, NeedsUpdateRelations: 1,
		},
		IssuePRRelations: []model.IssuePRRelation{{
			Issue:                 issue,
			RelatedPRs:            []model.PullRequest{merged},
			SynchronizationStatus: model.StatusNeedsUpdate,
			RecommendedAction:     "Close issue - 1 related PR(s) have been merged",
		}},
		OrphanedPRs:    []model.PullRequest{{Number: 8, Title: "Tidy up", State: "open", LinkedIssueNumbers: []int{}}},
		OrphanedIssues: []model.Issue{{Number: 456, Title: "Feature request", State: "open"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " markdown ", want: FormatMarkdown},
		{in: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	assert.IsType(t, &MarkdownFormatter{}, NewFormatter(FormatMarkdown))
	assert.IsType(t, &TableFormatter{}, NewFormatter(Format("other")))
}

func TestJSONReportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).FormatReport(sampleReport(), &buf))

	var got model.SynchronizationReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport().Summary, got.Summary)
	assert.Equal(t, model.StatusNeedsUpdate, got.IssuePRRelations[0].SynchronizationStatus)
	assert.Contains(t, buf.String(), `"synchronizationStatus": "needs_update"`)
}

func TestJSONEmptyCollections(t *testing.T) {
	f := NewFormatter(FormatJSON)

	var buf bytes.Buffer
	require.NoError(t, f.FormatPullRequests(nil, &buf))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatBatchResult(reconcile.BatchResult{Repository: "acme/api"}, &buf))
	assert.Contains(t, buf.String(), `"failed": []`)
}

func TestTableReport(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).FormatReport(sampleReport(), &buf))
	out := buf.String()

	assert.Contains(t, out, "Synchronization report for acme/api")
	assert.Contains(t, out, "Issues: 2   Pull requests: 2")
	assert.Contains(t, out, "needs update: 1")
	assert.Contains(t, out, "#123")
	assert.Contains(t, out, "Close issue - 1 related PR(s) have been merged")
	assert.Contains(t, out, "Pull requests without issue references:")
	assert.Contains(t, out, "#8       Tidy up")
	assert.Contains(t, out, "Issues without pull requests:")
}

func TestTablePullRequests(t *testing.T) {
	color.NoColor = true
	now := generated
	f := &TableFormatter{Now: func() time.Time { return now }}
	prs := []model.PullRequest{
		{Number: 7, Title: "Fix #123 and #124", State: "closed", Merged: true, LinkedIssueNumbers: []int{123, 124}, UpdatedAt: now.Add(-2 * time.Hour)},
		{Number: 8, Title: strings.Repeat("long title ", 10), State: "open", LinkedIssueNumbers: []int{}, UpdatedAt: now.Add(-72 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, f.FormatPullRequests(prs, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[2], "merged")
	assert.Contains(t, lines[2], "#123,#124")
	assert.True(t, strings.HasSuffix(lines[2], "2h"))
	assert.Contains(t, lines[3], "...")
	assert.True(t, strings.HasSuffix(lines[3], "3d"))
	assert.Empty(t, lines[4])
	assert.Equal(t, "2 pull request(s)", lines[5])

	buf.Reset()
	require.NoError(t, f.FormatPullRequests(nil, &buf))
	assert.Equal(t, "No pull requests found.\n", buf.String())
}

func TestSyncOutcomes(t *testing.T) {
	color.NoColor = true
	tests := []struct {
		name   string
		result reconcile.IssueSyncResult
		table  string
		md     string
	}{
		{
			name:   "closed",
			result: reconcile.IssueSyncResult{Repository: "acme/api", IssueNumber: 1, Success: true, Closed: true, CitedPR: 7},
			table:  "acme/api#1: closed (PR #7 merged)",
			md:     "✅ closed (PR #7 merged)",
		},
		{
			name:   "dry run",
			result: reconcile.IssueSyncResult{Repository: "acme/api", IssueNumber: 1, Success: true, Closed: true, DryRun: true, CitedPR: 7},
			table:  "would close (PR #7 merged)",
			md:     "would close",
		},
		{
			name:   "noop",
			result: reconcile.IssueSyncResult{Repository: "acme/api", IssueNumber: 1, Success: true},
			table:  "acme/api#1: no change",
			md:     "no change",
		},
		{
			name:   "failed",
			result: reconcile.IssueSyncResult{Repository: "acme/api", IssueNumber: 1, Error: "update issue: boom"},
			table:  "failed: update issue: boom",
			md:     "❌ failed: update issue: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, (&TableFormatter{}).FormatSyncResult(tt.result, &buf))
			assert.Contains(t, buf.String(), tt.table)

			buf.Reset()
			require.NoError(t, (&MarkdownFormatter{}).FormatSyncResult(tt.result, &buf))
			assert.Contains(t, buf.String(), tt.md)
		})
	}
}

func TestTableBatchResult(t *testing.T) {
	color.NoColor = true
	res := reconcile.BatchResult{
		Repository:        "acme/api",
		SynchronizedCount: 2,
		ClosedCount:       1,
		Failed:            []int{3},
		Results: []reconcile.IssueSyncResult{
			{IssueNumber: 1, Success: true, Closed: true, CitedPR: 7},
			{IssueNumber: 2, Success: true},
			{IssueNumber: 3, Err: errors.New("x"), Error: "x"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).FormatBatchResult(res, &buf))
	out := buf.String()
	assert.Contains(t, out, "#1")
	assert.NotContains(t, out, "#2 ")
	assert.Contains(t, out, "failed: x")
	assert.Contains(t, out, "acme/api: 2 issue(s) synchronized, 1 closed, 1 failed")
}

func TestMarkdownReportEscapesTitles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).FormatReport(sampleReport(), &buf))
	out := buf.String()
	assert.Contains(t, out, "# Synchronization Report: acme/api")
	assert.Contains(t, out, `Crash \| on start`)
	assert.Contains(t, out, "| 🟡 Needs update | 1 |")
	assert.Contains(t, out, "## Orphaned Issues")
}

func TestConnectivity(t *testing.T) {
	color.NoColor = true
	ok := auth.ConnectivityResult{
		Success:        true,
		Strategy:       "app",
		InstallationID: 42,
		Repositories:   []string{"acme/api"},
		Scopes:         []string{"issues:write", "pull_requests:read"},
		TokenExpiresAt: generated,
	}
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).FormatConnectivity(ok, &buf))
	assert.Contains(t, buf.String(), "Authenticated using app credentials")
	assert.Contains(t, buf.String(), "Installation:  42")
	assert.Contains(t, buf.String(), "issues:write, pull_requests:read")

	buf.Reset()
	bad := auth.ConnectivityResult{Strategy: "ambient", Error: "credentials not configured (GITHUB_TOKEN)"}
	require.NoError(t, (&TableFormatter{}).FormatConnectivity(bad, &buf))
	assert.Contains(t, buf.String(), "Authentication failed using ambient credentials")
	assert.Contains(t, buf.String(), "credentials not configured")
}
