package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spiffcs/linksync/internal/ghclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioSource() *fakeSource {
	src := newFakeSource()
	src.addIssue(123, "open")
	src.addIssue(456, "open")
	src.addPR(1, "Fix issue #123", "closed", true)
	return src
}

func TestSynchronizeIssueClosesOnMergedPR(t *testing.T) {
	src := scenarioSource()
	obs := &countingObserver{}
	e := newEngine(src, WithObserver(obs))
	ctx := context.Background()

	res, err := e.SynchronizeIssueWithPRs(ctx, repoName, 123)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Closed)
	assert.Equal(t, 1, res.CitedPR)
	assert.Equal(t, "closed", src.issues[123].State)
	require.Len(t, src.comments[123], 1)
	assert.Contains(t, src.comments[123][0], "#1")

	res, err = e.SynchronizeIssueWithPRs(ctx, repoName, 456)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Closed)
	assert.Equal(t, "open", src.issues[456].State)
	assert.Zero(t, src.updates[456])
	assert.Empty(t, src.comments[456])

	assert.Equal(t, map[string]int{OutcomeClosed: 1, OutcomeNoop: 1}, obs.outcomes)
}

func TestSynchronizeIssueIgnoresURLFragments(t *testing.T) {
	src := newFakeSource()
	src.addIssue(5, "open")
	src.addPR(1, "Update docs", "closed", true)
	src.prs[0].Body = "see https://wiki.test/runbooks/closed#5 and fix#5"
	e := newEngine(src)

	res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 5)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Closed)
	assert.Zero(t, res.CitedPR)
	assert.Equal(t, "open", src.issues[5].State)
	assert.Empty(t, src.comments[5])
}

func TestSynchronizeIssueIsIdempotent(t *testing.T) {
	src := scenarioSource()
	e := newEngine(src)
	ctx := context.Background()

	for range 2 {
		res, err := e.SynchronizeIssueWithPRs(ctx, repoName, 123)
		require.NoError(t, err)
		assert.True(t, res.Success)
	}
	assert.Equal(t, 1, src.updates[123], "exactly one state transition")
	assert.Len(t, src.comments[123], 1, "exactly one comment")
}

func TestSynchronizeIssueConcurrentCallsTransitionOnce(t *testing.T) {
	src := scenarioSource()
	e := newEngine(src)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 123)
			assert.NoError(t, err)
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.updates[123])
	assert.Len(t, src.comments[123], 1)
}

func TestSynchronizeIssueCitesFirstMergedPR(t *testing.T) {
	src := newFakeSource()
	src.addIssue(7, "open")
	src.addPR(10, "Part one, fixes #7", "open", false)
	src.addPR(11, "Closes #7", "closed", true)
	src.addPR(12, "Resolves #7 for real", "closed", true)
	e := newEngine(src)

	res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 7)
	require.NoError(t, err)
	assert.Equal(t, 11, res.CitedPR)
	assert.Equal(t, []int{10, 11, 12}, res.RelatedPRs)
	assert.Equal(t, 1, src.updates[7])
	require.Len(t, src.comments[7], 1)

	comment := src.comments[7][0]
	assert.Contains(t, comment, "pull request #11 was merged")
	assert.Contains(t, comment, "- Merged: #11 - Closes #7")
	assert.Contains(t, comment, "- Open: #10 - Part one, fixes #7")
	assert.Contains(t, comment, "- Merged: #12 - Resolves #7 for real")
}

func TestSynchronizeIssueNoMergedPRs(t *testing.T) {
	src := newFakeSource()
	src.addIssue(7, "open")
	src.addPR(10, "Fixes #7", "open", false)
	src.addPR(11, "Fixes #7 too", "closed", false)
	e := newEngine(src)

	res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 7)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Closed)
	assert.Zero(t, src.updates[7], "the engine only closes; it never acts on closed-unmerged PRs")
}

func TestSynchronizeIssueMissingIssueFails(t *testing.T) {
	e := newEngine(scenarioSource())
	_, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 999)
	assert.ErrorIs(t, err, ghclient.ErrNotFound)
}

func TestSynchronizeIssueWriteFailures(t *testing.T) {
	tests := []struct {
		name        string
		failUpdate  bool
		failComment bool
		wantClosed  bool
	}{
		{name: "close fails", failUpdate: true},
		{name: "comment fails after close", failComment: true, wantClosed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := scenarioSource()
			src.failUpdate[123] = tt.failUpdate
			src.failComment[123] = tt.failComment
			e := newEngine(src)

			res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 123)
			require.NoError(t, err, "write failures are reported in the result")
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantClosed, res.Closed)
			assert.Error(t, res.Err)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestSynchronizeIssueUnavailablePRList(t *testing.T) {
	src := scenarioSource()
	src.listPRErr = ghclient.ErrDataUnavailable
	e := newEngine(src)

	res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 123)
	require.NoError(t, err)
	assert.False(t, res.Success, "an unavailable PR list is not \"nothing to do\"")
	assert.ErrorIs(t, res.Err, ghclient.ErrDataUnavailable)
	assert.Zero(t, src.updates[123])
}

func TestSynchronizeIssueDryRun(t *testing.T) {
	src := scenarioSource()
	e := newEngine(src, WithDryRun(true))

	res, err := e.SynchronizeIssueWithPRs(context.Background(), repoName, 123)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Closed)
	assert.True(t, res.DryRun)
	assert.Equal(t, "open", src.issues[123].State)
	assert.Empty(t, src.comments)
}

func TestSynchronizeAllIssuesBatchResilience(t *testing.T) {
	src := newFakeSource()
	src.addIssue(1, "open")
	src.addIssue(2, "open")
	src.addIssue(3, "open")
	src.addPR(10, "Fixes #1", "closed", true)
	src.addPR(11, "Fixes #2", "closed", true)
	src.addPR(12, "Fixes #3", "closed", true)
	src.failUpdate[2] = true

	var mu sync.Mutex
	var progress []int
	e := newEngine(src, WithWorkers(2), WithProgress(func(_ IssueSyncResult, completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		progress = append(progress, completed)
	}))

	batch, err := e.SynchronizeAllIssuesWithPRs(context.Background(), repoName)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.SynchronizedCount)
	assert.Equal(t, 2, batch.ClosedCount)
	assert.Equal(t, []int{2}, batch.Failed)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.Results[1].IssueNumber)
	assert.False(t, batch.Results[1].Success)

	assert.Equal(t, "closed", src.issues[1].State)
	assert.Equal(t, "open", src.issues[2].State)
	assert.Equal(t, "closed", src.issues[3].State)
	assert.Equal(t, []int{1, 3}, sortedKeys(src.comments))
	assert.ElementsMatch(t, []int{1, 2, 3}, progress)
}

func TestSynchronizeAllIssuesCountsNoopsAsSuccess(t *testing.T) {
	src := scenarioSource()
	src.addIssue(789, "closed")
	e := newEngine(src)

	batch, err := e.SynchronizeAllIssuesWithPRs(context.Background(), repoName)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.SynchronizedCount)
	assert.Equal(t, 1, batch.ClosedCount)
	assert.Empty(t, batch.Failed)

	again, err := e.SynchronizeAllIssuesWithPRs(context.Background(), repoName)
	require.NoError(t, err)
	assert.Equal(t, 3, again.SynchronizedCount)
	assert.Zero(t, again.ClosedCount)
	assert.Equal(t, 1, src.updates[123])
}

func TestSynchronizeAllIssuesUnavailableSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeSource)
	}{
		{name: "issues", setup: func(f *fakeSource) { f.listIssueErr = ghclient.ErrDataUnavailable }},
		{name: "pull requests", setup: func(f *fakeSource) { f.listPRErr = ghclient.ErrDataUnavailable }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := scenarioSource()
			tt.setup(src)
			e := newEngine(src)

			batch, err := e.SynchronizeAllIssuesWithPRs(context.Background(), repoName)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ghclient.ErrDataUnavailable))
			assert.Zero(t, batch.SynchronizedCount)
			assert.Empty(t, src.updates)
		})
	}
}
