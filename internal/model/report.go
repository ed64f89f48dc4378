package model

import "time"

// SyncStatus describes how an issue's state relates to its linked PRs.
type SyncStatus string

const (
	// StatusSynchronized means the issue state matches what its PRs imply.
	StatusSynchronized SyncStatus = "synchronized"
	// StatusNeedsUpdate means the issue state lags behind its PRs.
	StatusNeedsUpdate SyncStatus = "needs_update"
	// StatusConflict means linked PRs disagree (some merged, some open).
	StatusConflict SyncStatus = "conflict"
)

// IssuePRRelation is a materialized view of one issue and the PRs that
// reference it. It is regenerated on every report.
type IssuePRRelation struct {
	Issue                 Issue         `json:"issue"`
	RelatedPRs            []PullRequest `json:"relatedPRs"`
	SynchronizationStatus SyncStatus    `json:"synchronizationStatus"`
	RecommendedAction     string        `json:"recommendedAction"`
}

// ReportSummary holds the report counts.
type ReportSummary struct {
	TotalIssues           int `json:"totalIssues"`
	TotalPRs              int `json:"totalPRs"`
	OrphanedPRs           int `json:"orphanedPRs"`
	OrphanedIssues        int `json:"orphanedIssues"`
	SynchronizedRelations int `json:"synchronizedRelations"`
	NeedsUpdateRelations  int `json:"needsUpdateRelations"`
	ConflictedRelations   int `json:"conflictedRelations"`
}

// SynchronizationReport is a point-in-time snapshot of the issue/PR graph
// of one repository.
type SynchronizationReport struct {
	Repository       string            `json:"repository"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	Summary          ReportSummary     `json:"summary"`
	IssuePRRelations []IssuePRRelation `json:"issuePRRelations"`
	OrphanedPRs      []PullRequest     `json:"orphanedPRs"`
	OrphanedIssues   []Issue           `json:"orphanedIssues"`
}
