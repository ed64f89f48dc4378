// Package history keeps a local JSON Lines log of reconciliation runs so
// repeated syncs and reports can be compared over time.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spiffcs/linksync/internal/log"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
)

const maxRecords = 1000

// Kind identifies the operation a Run records.
type Kind string

const (
	KindSync   Kind = "sync"
	KindReport Kind = "report"
)

// Run is one recorded operation against a repository.
type Run struct {
	Timestamp  time.Time `json:"ts"`
	Repository string    `json:"repository"`
	Kind       Kind      `json:"kind"`
	DryRun     bool      `json:"dryRun,omitempty"`

	// sync
	Synchronized int `json:"synchronized,omitempty"`
	Closed       int `json:"closed,omitempty"`
	Failed       int `json:"failed,omitempty"`

	// report
	Issues         int `json:"issues,omitempty"`
	PullRequests   int `json:"prs,omitempty"`
	NeedsUpdate    int `json:"needsUpdate,omitempty"`
	Conflicts      int `json:"conflicts,omitempty"`
	OrphanedIssues int `json:"orphanedIssues,omitempty"`
	OrphanedPRs    int `json:"orphanedPRs,omitempty"`
}

// FromBatch records a full-repository sync.
func FromBatch(batch reconcile.BatchResult, dryRun bool, at time.Time) Run {
	return Run{
		Timestamp:    at,
		Repository:   batch.Repository,
		Kind:         KindSync,
		DryRun:       dryRun,
		Synchronized: batch.SynchronizedCount,
		Closed:       batch.ClosedCount,
		Failed:       len(batch.Failed),
	}
}

// FromReport records a synchronization report.
func FromReport(report model.SynchronizationReport) Run {
	s := report.Summary
	return Run{
		Timestamp:      report.GeneratedAt,
		Repository:     report.Repository,
		Kind:           KindReport,
		Issues:         s.TotalIssues,
		PullRequests:   s.TotalPRs,
		NeedsUpdate:    s.NeedsUpdateRelations,
		Conflicts:      s.ConflictedRelations,
		OrphanedIssues: s.OrphanedIssues,
		OrphanedPRs:    s.OrphanedPRs,
	}
}

// Store appends runs to a JSON Lines file, keeping the newest maxRecords.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens the store in the user cache directory.
func NewStore() (*Store, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(cacheDir, "linksync")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return NewStoreWithPath(filepath.Join(dir, "history.jsonl")), nil
}

// NewStoreWithPath opens a store at path.
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Append records a run. An unreadable history is replaced.
func (s *Store) Append(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.readAll()
	if err != nil {
		log.Debug("could not read run history, starting fresh", "path", s.path, "error", err)
		runs = nil
	}
	runs = append(runs, run)
	if len(runs) > maxRecords {
		runs = runs[len(runs)-maxRecords:]
	}
	return s.writeAll(runs)
}

// Recent returns up to n of the newest runs, oldest first. An empty
// repository matches every run.
func (s *Store) Recent(repository string, n int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	if repository != "" {
		filtered := runs[:0]
		for _, r := range runs {
			if r.Repository == repository {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}
	if n > 0 && len(runs) > n {
		runs = runs[len(runs)-n:]
	}
	return runs, nil
}

func (s *Store) readAll() ([]Run, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var runs []Run
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Run
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		runs = append(runs, r)
	}
	return runs, scanner.Err()
}

// writeAll replaces the file via rename so readers never see a partial log.
func (s *Store) writeAll(runs []Run) (err error) {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err = enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err = w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
