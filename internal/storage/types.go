package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Ledger item kinds. The values are part of the on-disk schema; do not
// rename them without a migration.
const (
	KindOpenPR   = "pr_open"
	KindMergedPR = "pr"
	KindRelease  = "release"
)

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// RepoState is the per-repository tracking record. Watermarks only ever
// increase and LastRun only moves forward.
type RepoState struct {
	FullName      string
	LastPRID      int64
	LastReleaseID int64
	LastRun       time.Time
}

// Summary is a persisted per-day summary record.
type Summary struct {
	FullName     string
	Date         string // YYYY-MM-DD, local calendar day
	Kind         string
	Content      string
	PRCount      int
	ReleaseCount int
	CreatedAt    time.Time
}

// SummaryFilter narrows AllSummaries. Zero values mean "no constraint".
type SummaryFilter struct {
	FullName string
	From     string // YYYY-MM-DD inclusive
	To       string // YYYY-MM-DD inclusive
}
