// Package tracker orchestrates one tracking run: gate, fetch, summarize,
// persist, report, ledger, notify — strictly sequentially per repo.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ghtracker/internal/config"
	"ghtracker/internal/github"
	"ghtracker/internal/report"
	"ghtracker/internal/storage"
	"ghtracker/pkg/logx"
)

// historyLimit caps how many prior summaries are passed to the summarizer
// as background context.
const historyLimit = 3

// SummarizeError marks a failed summarization. The repo is skipped for this
// cycle with no state advanced, so the same items are retried when next due.
type SummarizeError struct {
	Repo string
	Err  error
}

func (e *SummarizeError) Error() string { return fmt.Sprintf("summarize %s: %v", e.Repo, e.Err) }
func (e *SummarizeError) Unwrap() error { return e.Err }

// Fetcher yields unseen activity and, after the summary is safely persisted,
// commits it to the ledger.
type Fetcher interface {
	FetchUpdates(ctx context.Context, rc config.RepoConfig) (*github.UpdateBatch, error)
	MarkProcessed(ctx context.Context, batch *github.UpdateBatch) error
}

// Summarizer matches summary.Summarizer; declared here so tests can fake it
// without importing the OpenAI client.
type Summarizer interface {
	Summarize(ctx context.Context, batch *github.UpdateBatch, history []storage.Summary) (string, error)
}

// Notifier is satisfied by a nil *notify.Dispatcher, whose methods are
// nil-safe no-ops reporting Enabled() == false.
type Notifier interface {
	Enabled() bool
	SendUpdate(ctx context.Context, repoName, summary string) error
	SendDigest(ctx context.Context, digest string, repoCount int) error
}

// Digester produces the combined daily digest text. Optional.
type Digester interface {
	Digest(ctx context.Context, repoNames, summaries []string) (string, error)
}

// Stats aggregates one run's outcome.
type Stats struct {
	Processed int
	Skipped   int
	Failed    int
}

// Result is the outcome of one successfully processed repo.
type Result struct {
	RepoName string
	Summary  string
	Batch    *github.UpdateBatch
}

type Tracker struct {
	store     *storage.Store
	fetcher   Fetcher
	summarize Summarizer
	notifier  Notifier
	reports   *report.Writer
	digester  Digester

	// RateLimit, when set, is called at the end of a run for the log line.
	RateLimit func(ctx context.Context) (github.RateInfo, error)

	log logx.Logger

	mu    sync.RWMutex
	repos []config.RepoConfig
}

func New(store *storage.Store, fetcher Fetcher, summarizer Summarizer, notifier Notifier,
	reports *report.Writer, digester Digester, repos []config.RepoConfig, log logx.Logger,
) *Tracker {
	return &Tracker{
		store:     store,
		fetcher:   fetcher,
		summarize: summarizer,
		notifier:  notifier,
		reports:   reports,
		digester:  digester,
		repos:     repos,
		log:       log,
	}
}

// SetRepos swaps the tracked set (config reload). Takes effect on the next
// run; an in-flight run keeps its snapshot.
func (t *Tracker) SetRepos(repos []config.RepoConfig) {
	t.mu.Lock()
	t.repos = repos
	t.mu.Unlock()
}

func (t *Tracker) Repos() []config.RepoConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.repos
}

// Run processes every tracked repo in order. Per-repo source and
// summarization failures are logged and skipped; a storage failure aborts
// the run with no further commits and is returned.
func (t *Tracker) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	repos := t.Repos()
	t.log.Info("tracking run started", logx.Int("repos", len(repos)))

	var (
		stats   Stats
		results []Result
		runErr  error
	)
	for _, rc := range repos {
		res, err := t.ProcessRepo(ctx, rc)
		switch {
		case err == nil && res == nil:
			stats.Skipped++
		case err == nil:
			stats.Processed++
			results = append(results, *res)
		case isPerRepoError(err):
			stats.Failed++
			t.log.Warn("repo skipped", logx.String("repo", rc.FullName()), logx.Err(err))
		default:
			// Storage failure: nothing further can be committed safely.
			stats.Failed++
			runErr = err
			t.log.Error("storage failure; aborting run", logx.String("repo", rc.FullName()), logx.Err(err))
		}
		if runErr != nil {
			break
		}
	}

	if len(results) > 0 {
		t.finishRun(ctx, results)
	}

	t.log.Info("tracking run completed",
		logx.Int("processed", stats.Processed),
		logx.Int("skipped", stats.Skipped),
		logx.Int("failed", stats.Failed),
		logx.Duration("took", time.Since(start)))
	t.logRateLimit(ctx)
	return stats, runErr
}

// ProcessRepo runs one repo's cycle. It returns (nil, nil) when the repo was
// not due or had nothing new.
func (t *Tracker) ProcessRepo(ctx context.Context, rc config.RepoConfig) (*Result, error) {
	full := rc.FullName()
	log := t.log.With(logx.String("repo", full))

	due, err := t.store.Due(ctx, full, rc.Frequency)
	if err != nil {
		return nil, err
	}
	if !due {
		log.Debug("not yet due; skipping")
		return nil, nil
	}

	batch, err := t.fetcher.FetchUpdates(ctx, rc)
	if err != nil {
		return nil, err
	}
	if batch.Empty() {
		log.Info("no new updates")
		return nil, nil
	}

	history, err := t.store.RecentSummaries(ctx, full, historyLimit)
	if err != nil {
		return nil, err
	}
	text, err := t.summarize.Summarize(ctx, batch, history)
	if err != nil {
		return nil, &SummarizeError{Repo: full, Err: err}
	}

	// Persist the summary before the ledger write: a crash in between means
	// the same items are fetched again next cycle rather than lost.
	if err := t.store.SaveSummary(ctx, full, "daily", text, batch.PRCount(), batch.ReleaseCount()); err != nil {
		return nil, err
	}
	if path, err := t.reports.Generate(full, text, batch); err != nil {
		log.Warn("report write failed", logx.Err(err))
	} else {
		log.Debug("report written", logx.String("path", path))
	}

	if err := t.fetcher.MarkProcessed(ctx, batch); err != nil {
		return nil, err
	}

	if rc.Notify && t.notifier.Enabled() {
		if err := t.notifier.SendUpdate(ctx, full, text); err != nil {
			// Dispatch failure never rolls back persisted state.
			log.Error("notification failed", logx.Err(err))
		}
	}

	log.Info("repo processed",
		logx.Int("merged_prs", len(batch.MergedPRs)),
		logx.Int("open_prs", len(batch.OpenPRs)),
		logx.Int("releases", len(batch.Releases)))
	return &Result{RepoName: full, Summary: text, Batch: batch}, nil
}

// RunOne processes a single repo by full name, ignoring the cadence gate's
// siblings (useful for the --repo CLI mode).
func (t *Tracker) RunOne(ctx context.Context, fullName string) error {
	for _, rc := range t.Repos() {
		if rc.FullName() == fullName {
			_, err := t.ProcessRepo(ctx, rc)
			return err
		}
	}
	return fmt.Errorf("repo %s is not in the tracked set", fullName)
}

// finishRun writes the digest report and sends the digest notification.
// Both are best-effort.
func (t *Tracker) finishRun(ctx context.Context, results []Result) {
	entries := make([]report.Entry, 0, len(results))
	names := make([]string, 0, len(results))
	texts := make([]string, 0, len(results))
	for _, r := range results {
		entries = append(entries, report.Entry{RepoName: r.RepoName, Summary: r.Summary, Batch: r.Batch})
		names = append(names, r.RepoName)
		texts = append(texts, r.Summary)
	}

	if path, err := t.reports.GenerateDigest(entries); err != nil {
		t.log.Warn("digest report failed", logx.Err(err))
	} else {
		t.log.Debug("digest report written", logx.String("path", path))
	}

	if t.digester == nil || !t.notifier.Enabled() {
		return
	}
	digest, err := t.digester.Digest(ctx, names, texts)
	if err != nil {
		t.log.Warn("digest generation failed", logx.Err(err))
		return
	}
	if err := t.notifier.SendDigest(ctx, digest, len(results)); err != nil {
		t.log.Error("digest notification failed", logx.Err(err))
	}
}

func (t *Tracker) logRateLimit(ctx context.Context) {
	if t.RateLimit == nil {
		return
	}
	info, err := t.RateLimit(ctx)
	if err != nil {
		t.log.Debug("rate limit lookup failed", logx.Err(err))
		return
	}
	t.log.Info("github rate limit",
		logx.Int("remaining", info.Remaining),
		logx.Int("limit", info.Limit),
		logx.Time("reset", info.Reset))
}

func isPerRepoError(err error) bool {
	var se *github.SourceError
	var me *SummarizeError
	return errors.As(err, &se) || errors.As(err, &me)
}
