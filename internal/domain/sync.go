package domain

import (
	"errors"
	"time"
)

var (
	ErrMalformedListing = errors.New("malformed listing")
	ErrMedia            = errors.New("media ingestion")
	ErrRunInProgress    = errors.New("sync already running for store")
	ErrDuplicateRecord  = errors.New("record already exists")
)

// Stage names the step of the pipeline a failure happened in.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageLookup    Stage = "lookup"
	StageCreate    Stage = "create"
	StageMedia     Stage = "media"
	StagePublish   Stage = "publish"
	StageDeadline  Stage = "deadline"
)

type Failure struct {
	ListingID string
	Stage     Stage
	Cause     error
}

func (f Failure) Error() string {
	if f.ListingID == "" {
		return string(f.Stage) + ": " + f.Cause.Error()
	}
	return string(f.Stage) + " listing " + f.ListingID + ": " + f.Cause.Error()
}

// SyncResult holds the outcome of one run.
type SyncResult struct {
	RunID     string
	StoreID   string
	Processed int
	Created   int
	Skipped   int
	Failures  []Failure
	StartedAt time.Time
	Duration  time.Duration
}

func (r *SyncResult) Fail(listingID string, stage Stage, cause error) {
	r.Failures = append(r.Failures, Failure{ListingID: listingID, Stage: stage, Cause: cause})
}

type SyncState struct {
	ID           int64     `db:"id"`
	StoreID      string    `db:"store_id"`
	LastSyncedAt time.Time `db:"last_synced_at"`
	LastRunID    string    `db:"last_run_id"`
	TotalCreated int64     `db:"total_created"`
}
