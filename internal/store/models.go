package store

import "time"

// SyncRun records one sync execution.
type SyncRun struct {
	ID           int64
	RunID        string // UUID correlating log lines and outcomes
	StartTime    time.Time
	EndTime      time.Time
	Items        int // source items dispatched
	Created      int
	Updated      int
	Skipped      int
	Failed       int
	DryRun       bool
	Status       string // "running", "success", "partial", "failed"
	ErrorMessage string
}

// Outcome records one (source item, target) attempt within a run.
type Outcome struct {
	ID         int64
	SyncRunID  int64
	GistID     string
	Identifier string
	Target     string
	Provider   string
	Result     string // "created", "updated", "skipped", "failed"
	Error      string
	CreatedAt  time.Time
}
