package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ghtracker/pkg/logx"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "tracker.db")}, logx.Logger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func i64(v int64) *int64 { return &v }

func TestRepoStateUnknownRepo(t *testing.T) {
	st := testStore(t)

	got, err := st.RepoState(context.Background(), "owner/unknown")
	if err != nil {
		t.Fatalf("RepoState: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil state, got %+v", got)
	}
}

func TestUpdateRepoStateInsertAndAdvance(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.UpdateRepoState(ctx, "owner/repo", i64(100), i64(5)); err != nil {
		t.Fatalf("UpdateRepoState insert: %v", err)
	}
	got, err := st.RepoState(ctx, "owner/repo")
	if err != nil {
		t.Fatalf("RepoState: %v", err)
	}
	if got.LastPRID != 100 || got.LastReleaseID != 5 {
		t.Fatalf("watermarks = (%d, %d), want (100, 5)", got.LastPRID, got.LastReleaseID)
	}
	if got.LastRun.IsZero() {
		t.Fatalf("LastRun not recorded")
	}

	if err := st.UpdateRepoState(ctx, "owner/repo", i64(200), nil); err != nil {
		t.Fatalf("UpdateRepoState advance: %v", err)
	}
	got, _ = st.RepoState(ctx, "owner/repo")
	if got.LastPRID != 200 {
		t.Fatalf("LastPRID = %d, want 200", got.LastPRID)
	}
	if got.LastReleaseID != 5 {
		t.Fatalf("nil release pointer must leave the watermark at 5, got %d", got.LastReleaseID)
	}
}

func TestUpdateRepoStateNeverRegresses(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.UpdateRepoState(ctx, "owner/repo", i64(300), i64(30)); err != nil {
		t.Fatalf("UpdateRepoState: %v", err)
	}
	// Stale caller with lower ids.
	if err := st.UpdateRepoState(ctx, "owner/repo", i64(250), i64(10)); err != nil {
		t.Fatalf("UpdateRepoState stale: %v", err)
	}
	got, err := st.RepoState(ctx, "owner/repo")
	if err != nil {
		t.Fatalf("RepoState: %v", err)
	}
	if got.LastPRID != 300 || got.LastReleaseID != 30 {
		t.Fatalf("watermarks regressed to (%d, %d)", got.LastPRID, got.LastReleaseID)
	}
}

func TestProcessedLedger(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	seen, err := st.IsProcessed(ctx, "owner/repo", KindMergedPR, 42)
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if seen {
		t.Fatalf("item marked seen before MarkProcessed")
	}

	if err := st.MarkProcessed(ctx, "owner/repo", KindMergedPR, 42, "fix", "https://x/42"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	// Marking twice is a no-op, not an error.
	if err := st.MarkProcessed(ctx, "owner/repo", KindMergedPR, 42, "fix", "https://x/42"); err != nil {
		t.Fatalf("MarkProcessed repeat: %v", err)
	}

	seen, err = st.IsProcessed(ctx, "owner/repo", KindMergedPR, 42)
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !seen {
		t.Fatalf("item not seen after MarkProcessed")
	}

	// Same id under a different kind is a distinct ledger entry.
	seen, err = st.IsProcessed(ctx, "owner/repo", KindRelease, 42)
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if seen {
		t.Fatalf("kind must be part of the ledger key")
	}
}

func TestSaveSummaryReplacesSameDay(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	st.now = func() time.Time { return time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local) }

	if err := st.SaveSummary(ctx, "owner/repo", "daily", "first draft", 3, 1); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	if err := st.SaveSummary(ctx, "owner/repo", "daily", "second draft", 4, 1); err != nil {
		t.Fatalf("SaveSummary rerun: %v", err)
	}

	got, err := st.RecentSummaries(ctx, "owner/repo", 10)
	if err != nil {
		t.Fatalf("RecentSummaries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 summary after same-day rerun, got %d", len(got))
	}
	if got[0].Content != "second draft" || got[0].PRCount != 4 {
		t.Fatalf("rerun did not replace: %+v", got[0])
	}
	if got[0].Date != "2025-06-10" {
		t.Fatalf("Date = %q", got[0].Date)
	}
}

func TestAllSummariesFilter(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	days := []string{"2025-06-08", "2025-06-09", "2025-06-10"}
	for i, d := range days {
		day := d
		st.now = func() time.Time {
			tm, _ := time.Parse("2006-01-02", day)
			return tm
		}
		if err := st.SaveSummary(ctx, "owner/a", "daily", "a-"+day, i, 0); err != nil {
			t.Fatalf("SaveSummary: %v", err)
		}
	}
	st.now = func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }
	if err := st.SaveSummary(ctx, "owner/b", "daily", "b-latest", 1, 1); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	got, err := st.AllSummaries(ctx, SummaryFilter{FullName: "owner/a", From: "2025-06-09", To: "2025-06-09"})
	if err != nil {
		t.Fatalf("AllSummaries: %v", err)
	}
	if len(got) != 1 || got[0].Content != "a-2025-06-09" {
		t.Fatalf("filtered result = %+v", got)
	}

	all, err := st.AllSummaries(ctx, SummaryFilter{})
	if err != nil {
		t.Fatalf("AllSummaries: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 summaries, got %d", len(all))
	}
	if all[0].Date != "2025-06-10" {
		t.Fatalf("expected newest first, got %q", all[0].Date)
	}

	repos, err := st.TrackedRepos(ctx)
	if err != nil {
		t.Fatalf("TrackedRepos: %v", err)
	}
	if len(repos) != 2 || repos[0] != "owner/a" || repos[1] != "owner/b" {
		t.Fatalf("TrackedRepos = %v", repos)
	}
}
