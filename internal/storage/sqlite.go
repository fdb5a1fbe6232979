package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ghtracker/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Store is the durable state behind the tracker: per-repo watermarks, the
// processed-item ledger, and summary history. Every exported method is a
// single atomic statement; any sqlite error must be treated as fatal for the
// current cycle by callers.
type Store struct {
	db  *sql.DB
	log logx.Logger

	now func() time.Time
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log, now: time.Now}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RepoState returns nil when the repo has never been polled.
func (s *Store) RepoState(ctx context.Context, fullName string) (*RepoState, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	var (
		st      RepoState
		lastRun sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT full_name, last_pr_id, last_release_id, last_run_time
		 FROM repos WHERE full_name = ?`, fullName,
	).Scan(&st.FullName, &st.LastPRID, &st.LastReleaseID, &lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastRun.Valid && lastRun.String != "" {
		t, perr := time.Parse(time.RFC3339Nano, lastRun.String)
		if perr != nil {
			return nil, fmt.Errorf("parse last_run_time for %s: %w", fullName, perr)
		}
		st.LastRun = t
	}
	return &st, nil
}

// UpdateRepoState advances the watermarks and refreshes last_run_time.
// A nil watermark pointer leaves that column untouched; a missing row is
// created with zero defaults. Watermarks are clamped with MAX() so a stale
// caller can never move them backwards.
func (s *Store) UpdateRepoState(ctx context.Context, fullName string, prID, releaseID *int64) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	now := s.now().Format(time.RFC3339Nano)

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM repos WHERE full_name = ?`, fullName).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		var pr, rel int64
		if prID != nil {
			pr = *prID
		}
		if releaseID != nil {
			rel = *releaseID
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO repos (full_name, last_pr_id, last_release_id, last_run_time)
			 VALUES (?,?,?,?)`, fullName, pr, rel, now)
		return err
	case err != nil:
		return err
	}

	sets := []string{"last_run_time = ?"}
	args := []any{now}
	if prID != nil {
		sets = append(sets, "last_pr_id = MAX(last_pr_id, ?)")
		args = append(args, *prID)
	}
	if releaseID != nil {
		sets = append(sets, "last_release_id = MAX(last_release_id, ?)")
		args = append(args, *releaseID)
	}
	args = append(args, fullName)
	_, err = s.db.ExecContext(ctx,
		"UPDATE repos SET "+strings.Join(sets, ", ")+" WHERE full_name = ?", args...)
	return err
}

func (s *Store) IsProcessed(ctx context.Context, fullName, kind string, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrClosed
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_items
		 WHERE repo_full_name = ? AND item_type = ? AND item_id = ?`,
		fullName, kind, id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProcessed is insert-if-absent: marking the same item twice is a no-op.
func (s *Store) MarkProcessed(ctx context.Context, fullName, kind string, id int64, title, url string) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_items
		 (repo_full_name, item_type, item_id, item_title, item_url)
		 VALUES (?,?,?,?,?)`,
		fullName, kind, id, title, url)
	return err
}

// SaveSummary upserts on (repo, local calendar day, kind): a re-run on the
// same day replaces the earlier summary.
func (s *Store) SaveSummary(ctx context.Context, fullName, kind, content string, prCount, releaseCount int) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	today := s.now().Format("2006-01-02")
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summaries
		 (repo_full_name, summary_date, summary_type, content, pr_count, release_count)
		 VALUES (?,?,?,?,?,?)`,
		fullName, today, kind, content, prCount, releaseCount)
	return err
}

func (s *Store) RecentSummaries(ctx context.Context, fullName string, limit int) ([]Summary, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT repo_full_name, summary_date, summary_type, content, pr_count, release_count, created_at
		 FROM summaries WHERE repo_full_name = ?
		 ORDER BY summary_date DESC, created_at DESC LIMIT ?`,
		fullName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// AllSummaries lists summaries for the dashboard, newest first.
func (s *Store) AllSummaries(ctx context.Context, f SummaryFilter) ([]Summary, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	q := `SELECT repo_full_name, summary_date, summary_type, content, pr_count, release_count, created_at
	      FROM summaries WHERE 1=1`
	var args []any
	if f.FullName != "" {
		q += " AND repo_full_name = ?"
		args = append(args, f.FullName)
	}
	if f.From != "" {
		q += " AND summary_date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		q += " AND summary_date <= ?"
		args = append(args, f.To)
	}
	q += " ORDER BY summary_date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// TrackedRepos returns the distinct repos that have at least one summary.
func (s *Store) TrackedRepos(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT repo_full_name FROM summaries ORDER BY repo_full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func scanSummaries(rows *sql.Rows) ([]Summary, error) {
	var out []Summary
	for rows.Next() {
		var (
			sm      Summary
			created string
		)
		if err := rows.Scan(&sm.FullName, &sm.Date, &sm.Kind, &sm.Content, &sm.PRCount, &sm.ReleaseCount, &created); err != nil {
			return nil, err
		}
		// created_at comes from CURRENT_TIMESTAMP ("2006-01-02 15:04:05").
		if t, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
			sm.CreatedAt = t
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
