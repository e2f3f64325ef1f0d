package state

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPnLTrackerAccumulates(t *testing.T) {
	tracker := NewPnLTracker()

	tracker.Add("acct-1", "2025-06-02", decimal.RequireFromString("125.50"))
	tracker.Add("acct-1", "2025-06-02", decimal.RequireFromString("-300.25"))
	tracker.Add("acct-2", "2025-06-02", decimal.RequireFromString("40"))

	if got := tracker.Realized("acct-1"); !got.Equal(decimal.RequireFromString("-174.75")) {
		t.Fatalf("expected -174.75, got %s", got)
	}
	if got := tracker.Realized("acct-2"); !got.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("expected 40, got %s", got)
	}
	if got := tracker.Realized("acct-3"); !got.IsZero() {
		t.Fatalf("expected zero for untracked account, got %s", got)
	}
}

func TestPnLTrackerRollsToNewDay(t *testing.T) {
	tracker := NewPnLTracker()

	tracker.Add("acct-1", "2025-06-02", decimal.RequireFromString("-500"))
	total := tracker.Add("acct-1", "2025-06-03", decimal.RequireFromString("10"))

	if !total.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected day roll to discard prior total, got %s", total)
	}
}

func TestPnLTrackerResetAndSeed(t *testing.T) {
	tracker := NewPnLTracker()

	tracker.Seed("acct-1", "2025-06-02", decimal.RequireFromString("-99.5"))
	if got := tracker.Realized("acct-1"); !got.Equal(decimal.RequireFromString("-99.5")) {
		t.Fatalf("expected seeded total, got %s", got)
	}

	tracker.Reset("acct-1", "2025-06-03")
	if got := tracker.Realized("acct-1"); !got.IsZero() {
		t.Fatalf("expected zero after reset, got %s", got)
	}
}
