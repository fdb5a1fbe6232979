package github

import "time"

// PRInfo is the transient view of a pull request carried through one cycle.
type PRInfo struct {
	ID        int64
	Number    int
	Title     string
	URL       string
	State     string
	Merged    bool
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Labels    []string
}

// ReleaseInfo is the transient view of a release.
type ReleaseInfo struct {
	ID          int64
	Tag         string
	Name        string
	URL         string
	Body        string
	PublishedAt time.Time
	Prerelease  bool
}

// UpdateBatch carries everything genuinely unseen for one repo during one
// cycle. It is never persisted; the ledger holds only item references.
type UpdateBatch struct {
	RepoName  string
	OpenPRs   []PRInfo
	MergedPRs []PRInfo
	Releases  []ReleaseInfo

	// Keywords steer the summarizer's attention; they never filter items.
	Keywords []string
}

func (b *UpdateBatch) Empty() bool {
	return b == nil || (len(b.OpenPRs) == 0 && len(b.MergedPRs) == 0 && len(b.Releases) == 0)
}

func (b *UpdateBatch) PRCount() int { return len(b.OpenPRs) + len(b.MergedPRs) }

func (b *UpdateBatch) ReleaseCount() int { return len(b.Releases) }
