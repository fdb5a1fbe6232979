package storage

import (
	"context"
	"time"
)

// Polling frequencies accepted in repo configuration. Anything else falls
// back to the daily rule.
const (
	FreqDaily     = "1d"
	FreqEvery2d   = "2d"
	FreqOnRelease = "on_release"
)

// Due reports whether a repo's polling cycle should run. A repo that has
// never run is always due. The gate is advisory only: it decides whether to
// attempt a cycle, while the processed-item ledger is what prevents
// duplicate notifications.
func (s *Store) Due(ctx context.Context, fullName, frequency string) (bool, error) {
	st, err := s.RepoState(ctx, fullName)
	if err != nil {
		return false, err
	}
	if st == nil || st.LastRun.IsZero() {
		return true, nil
	}
	return dueAt(st.LastRun, frequency, s.now()), nil
}

// dueAt compares calendar dates, not elapsed duration: a daily job that last
// ran at 09:03 is due again at 00:01 the next day. A run that fired slightly
// late must not cause the following day's run to be skipped.
func dueAt(lastRun time.Time, frequency string, now time.Time) bool {
	days := daysBetween(lastRun, now)
	switch frequency {
	case FreqDaily:
		return days >= 1
	case FreqEvery2d:
		return days >= 2
	case FreqOnRelease:
		// Always attempt; the fetcher returning "no batch" is what
		// suppresses idle cycles for this mode.
		return true
	}
	return days >= 1
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	a0 := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	b0 := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(b0.Sub(a0).Hours() / 24)
}
