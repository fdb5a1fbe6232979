package github

import (
	"context"
	"fmt"

	"ghtracker/internal/config"
	"ghtracker/internal/storage"
	"ghtracker/pkg/logx"
)

// Scan caps per item kind. They bound the cost of one fetch against
// repositories with unbounded history.
const (
	scanMergedPRs = 50
	scanOpenPRs   = 30
	scanReleases  = 10
)

// SourceError marks a per-repo GitHub access failure. It is non-fatal to
// the overall run: the orchestrator skips the repo for this cycle.
type SourceError struct {
	Repo string
	Err  error
}

func (e *SourceError) Error() string { return fmt.Sprintf("github: %s: %v", e.Repo, e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// stateStore is the slice of the storage API the fetcher needs. Errors from
// it are storage errors and must stay fatal for the cycle, which is why they
// are returned unwrapped, unlike Source failures.
type stateStore interface {
	RepoState(ctx context.Context, fullName string) (*storage.RepoState, error)
	IsProcessed(ctx context.Context, fullName, kind string, id int64) (bool, error)
	MarkProcessed(ctx context.Context, fullName, kind string, id int64, title, url string) error
	UpdateRepoState(ctx context.Context, fullName string, prID, releaseID *int64) error
}

// Fetcher produces batches of genuinely unseen activity. The watermark is a
// cheap pre-filter; the ledger is the source of truth for "already
// surfaced" and wins whenever the two disagree (upstream ordering is not
// strictly monotonic with item ids).
type Fetcher struct {
	src   Source
	store stateStore
	log   logx.Logger
}

func NewFetcher(src Source, store stateStore, log logx.Logger) *Fetcher {
	return &Fetcher{src: src, store: store, log: log}
}

// FetchUpdates returns (nil, nil) when there is nothing new — distinct from
// an error. A Resolve failure yields a *SourceError; a transient failure on
// a single item kind degrades to zero items of that kind and the other
// kinds are still fetched.
func (f *Fetcher) FetchUpdates(ctx context.Context, rc config.RepoConfig) (*UpdateBatch, error) {
	full := rc.FullName()
	log := f.log.With(logx.String("repo", full))

	if err := f.src.Resolve(ctx, rc.Owner, rc.Name); err != nil {
		return nil, &SourceError{Repo: full, Err: err}
	}

	var lastPR, lastRelease int64
	if st, err := f.store.RepoState(ctx, full); err != nil {
		return nil, err
	} else if st != nil {
		lastPR = st.LastPRID
		lastRelease = st.LastReleaseID
	}

	batch := &UpdateBatch{RepoName: full, Keywords: rc.Keywords}

	if rc.Level == "all" || rc.Level == "merged_and_release" {
		prs, err := f.src.PullRequests(ctx, rc.Owner, rc.Name, "closed", scanMergedPRs)
		if err != nil {
			log.Warn("fetching merged PRs failed; skipping kind", logx.Err(err))
		} else {
			for _, pr := range capScan(prs, scanMergedPRs) {
				if !pr.Merged || pr.ID <= lastPR {
					continue
				}
				seen, err := f.store.IsProcessed(ctx, full, storage.KindMergedPR, pr.ID)
				if err != nil {
					return nil, err
				}
				if !seen {
					batch.MergedPRs = append(batch.MergedPRs, pr)
				}
			}
		}
	}

	if rc.Level == "all" {
		prs, err := f.src.PullRequests(ctx, rc.Owner, rc.Name, "open", scanOpenPRs)
		if err != nil {
			log.Warn("fetching open PRs failed; skipping kind", logx.Err(err))
		} else {
			for _, pr := range capScan(prs, scanOpenPRs) {
				if pr.ID <= lastPR {
					continue
				}
				seen, err := f.store.IsProcessed(ctx, full, storage.KindOpenPR, pr.ID)
				if err != nil {
					return nil, err
				}
				if !seen {
					batch.OpenPRs = append(batch.OpenPRs, pr)
				}
			}
		}
	}

	// Releases are tracked at every level.
	rels, err := f.src.Releases(ctx, rc.Owner, rc.Name, scanReleases)
	if err != nil {
		log.Warn("fetching releases failed; skipping kind", logx.Err(err))
	} else {
		for _, rel := range capScan(rels, scanReleases) {
			if rel.ID <= lastRelease {
				continue
			}
			seen, err := f.store.IsProcessed(ctx, full, storage.KindRelease, rel.ID)
			if err != nil {
				return nil, err
			}
			if !seen {
				batch.Releases = append(batch.Releases, rel)
			}
		}
	}

	if batch.Empty() {
		return nil, nil
	}
	return batch, nil
}

// MarkProcessed extends the ledger with every batch item and advances the
// watermarks to the highest ids seen. Item classes with no new items leave
// their watermark untouched. The orchestrator calls this only after the
// summary has been generated and persisted, so a crash before this point
// re-fetches the same items instead of losing them.
func (f *Fetcher) MarkProcessed(ctx context.Context, batch *UpdateBatch) error {
	if batch.Empty() {
		return nil
	}
	full := batch.RepoName

	var maxPR, maxRelease int64
	for _, pr := range batch.OpenPRs {
		if err := f.store.MarkProcessed(ctx, full, storage.KindOpenPR, pr.ID, pr.Title, pr.URL); err != nil {
			return err
		}
		maxPR = max(maxPR, pr.ID)
	}
	for _, pr := range batch.MergedPRs {
		if err := f.store.MarkProcessed(ctx, full, storage.KindMergedPR, pr.ID, pr.Title, pr.URL); err != nil {
			return err
		}
		maxPR = max(maxPR, pr.ID)
	}
	for _, rel := range batch.Releases {
		if err := f.store.MarkProcessed(ctx, full, storage.KindRelease, rel.ID, rel.Name, rel.URL); err != nil {
			return err
		}
		maxRelease = max(maxRelease, rel.ID)
	}

	var prPtr, relPtr *int64
	if maxPR > 0 {
		prPtr = &maxPR
	}
	if maxRelease > 0 {
		relPtr = &maxRelease
	}
	return f.store.UpdateRepoState(ctx, full, prPtr, relPtr)
}

// capScan enforces the per-kind scan bound even if a Source returns more
// than asked for.
func capScan[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
