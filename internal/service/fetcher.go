package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/spiffcs/linksync/internal/ghclient"
	"github.com/spiffcs/linksync/internal/model"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called as repositories complete.
type ProgressFunc func(completed, total int)

// RepositoryReport is the report of one repository in a multi-repository
// run. Err is set when that repository's report could not be produced;
// Retryable marks failures that may succeed on a later run.
type RepositoryReport struct {
	Repository string                       `json:"repository"`
	Report     *model.SynchronizationReport `json:"report,omitempty"`
	Error      string                       `json:"error,omitempty"`
	Retryable  bool                         `json:"retryable,omitempty"`
	Err        error                        `json:"-"`
}

// ReportResult contains the reports of every requested repository.
type ReportResult struct {
	Reports     []RepositoryReport `json:"reports"`
	RateLimited bool               `json:"rateLimited,omitempty"`
}

// Failed returns the number of repositories without a report.
func (r *ReportResult) Failed() int {
	n := 0
	for _, rep := range r.Reports {
		if rep.Err != nil {
			n++
		}
	}
	return n
}

// Fetcher generates reports for several repositories in parallel.
type Fetcher struct {
	svc        *SyncService
	workers    int
	onProgress ProgressFunc
}

// NewFetcher creates a Fetcher. onProgress may be nil (no-op).
func NewFetcher(svc *SyncService, workers int, onProgress ProgressFunc) *Fetcher {
	if workers <= 0 {
		workers = 1
	}
	return &Fetcher{
		svc:        svc,
		workers:    workers,
		onProgress: onProgress,
	}
}

func (f *Fetcher) reportProgress(completed, total int) {
	if f.onProgress != nil {
		f.onProgress(completed, total)
	}
}

// FetchReports generates one report per repository. A failing repository
// does not cancel the others; results keep the input order.
func (f *Fetcher) FetchReports(ctx context.Context, repositories []string) *ReportResult {
	total := len(repositories)
	var completed int32
	f.reportProgress(0, total)

	result := &ReportResult{Reports: make([]RepositoryReport, total)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, repo := range repositories {
		g.Go(func() error {
			entry := RepositoryReport{Repository: repo}
			report, err := f.svc.GenerateSynchronizationReport(ctx, repo)
			if err != nil {
				entry.Err = err
				entry.Error = err.Error()
				entry.Retryable = ghclient.IsTransient(err) || errors.Is(err, ghclient.ErrRateLimited)
				if errors.Is(err, ghclient.ErrRateLimited) {
					mu.Lock()
					result.RateLimited = true
					mu.Unlock()
				}
			} else {
				entry.Report = &report
			}
			result.Reports[i] = entry
			f.reportProgress(int(atomic.AddInt32(&completed, 1)), total)
			return nil
		})
	}
	_ = g.Wait()
	return result
}
