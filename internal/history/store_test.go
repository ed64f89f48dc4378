package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecent(t *testing.T) {
	s := NewStoreWithPath(filepath.Join(t.TempDir(), "history.jsonl"))

	runs, err := s.Recent("", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, s.Append(Run{Repository: "acme/api", Kind: KindSync, Closed: 2}))
	require.NoError(t, s.Append(Run{Repository: "acme/web", Kind: KindReport, Issues: 4}))
	require.NoError(t, s.Append(Run{Repository: "acme/api", Kind: KindSync, Closed: 0}))

	runs, err = s.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 4, runs[1].Issues)

	runs, err = s.Recent("acme/api", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].Closed)

	runs, err = s.Recent("acme/api", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].Closed)
}

func TestPrune(t *testing.T) {
	s := NewStoreWithPath(filepath.Join(t.TempDir(), "history.jsonl"))
	for i := range maxRecords + 5 {
		require.NoError(t, s.Append(Run{Repository: "acme/api", Synchronized: i}))
	}

	runs, err := s.Recent("", 0)
	require.NoError(t, err)
	require.Len(t, runs, maxRecords)
	assert.Equal(t, 5, runs[0].Synchronized)
}

func TestMalformedLinesSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"repository\":\"acme/api\"}\nnot json\n\n"), 0600))

	runs, err := NewStoreWithPath(path).Recent("", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "acme/api", runs[0].Repository)
}

func TestFileIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, NewStoreWithPath(path).Append(Run{Repository: "acme/api"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFromBatchAndReport(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	run := FromBatch(reconcile.BatchResult{
		Repository:        "acme/api",
		SynchronizedCount: 3,
		ClosedCount:       1,
		Failed:            []int{9},
	}, true, at)
	assert.Equal(t, Run{
		Timestamp: at, Repository: "acme/api", Kind: KindSync, DryRun: true,
		Synchronized: 3, Closed: 1, Failed: 1,
	}, run)

	run = FromReport(model.SynchronizationReport{
		Repository:  "acme/web",
		GeneratedAt: at,
		Summary:     model.ReportSummary{TotalIssues: 5, TotalPRs: 4, NeedsUpdateRelations: 2, ConflictedRelations: 1, OrphanedPRs: 1},
	})
	assert.Equal(t, KindReport, run.Kind)
	assert.Equal(t, 2, run.NeedsUpdate)
	assert.Equal(t, 1, run.Conflicts)
	assert.Equal(t, 1, run.OrphanedPRs)
	assert.Equal(t, at, run.Timestamp)
}
