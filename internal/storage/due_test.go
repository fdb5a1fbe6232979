package storage

import (
	"context"
	"testing"
	"time"
)

func TestDueAt(t *testing.T) {
	day := func(d int, hour int) time.Time {
		return time.Date(2025, 6, 10+d, hour, 0, 0, 0, time.Local)
	}

	cases := []struct {
		name    string
		lastRun time.Time
		freq    string
		now     time.Time
		want    bool
	}{
		{"daily same day", day(0, 9), FreqDaily, day(0, 23), false},
		{"daily next calendar day just after midnight", day(0, 9), FreqDaily, day(1, 0).Add(time.Minute), true},
		{"daily ran late yesterday", day(0, 23), FreqDaily, day(1, 9), true},
		{"every 2d after one day", day(0, 9), FreqEvery2d, day(1, 9), false},
		{"every 2d after two days", day(0, 9), FreqEvery2d, day(2, 0), true},
		{"on_release same day", day(0, 9), FreqOnRelease, day(0, 10), true},
		{"unknown frequency falls back to daily", day(0, 9), "weekly", day(0, 23), false},
		{"unknown frequency due next day", day(0, 9), "weekly", day(1, 1), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dueAt(tc.lastRun, tc.freq, tc.now); got != tc.want {
				t.Fatalf("dueAt(%v, %q, %v) = %v, want %v", tc.lastRun, tc.freq, tc.now, got, tc.want)
			}
		})
	}
}

func TestDueNeverPolledRepo(t *testing.T) {
	st := testStore(t)

	due, err := st.Due(context.Background(), "owner/new", FreqEvery2d)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if !due {
		t.Fatalf("a never-polled repo must be due")
	}
}
