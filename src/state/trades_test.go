package state

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTradeWindowRollingCount(t *testing.T) {
	w := NewTradeWindow(time.Hour)
	base := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	w.Record("acct-1", "ESU5", decimal.RequireFromString("10"), base)
	w.Record("acct-1", "ESU5", decimal.RequireFromString("-5"), base.Add(20*time.Minute))
	w.Record("acct-1", "NQU5", decimal.RequireFromString("3"), base.Add(40*time.Minute))

	if got := w.CountInWindow("acct-1", base.Add(40*time.Minute)); got != 3 {
		t.Fatalf("expected 3 trades in window, got %d", got)
	}
	// The first trade falls out once the window slides past it.
	if got := w.CountInWindow("acct-1", base.Add(61*time.Minute)); got != 2 {
		t.Fatalf("expected 2 trades after expiry, got %d", got)
	}
	if got := w.CountInWindow("acct-2", base); got != 0 {
		t.Fatalf("expected 0 trades for unknown account, got %d", got)
	}
}

func TestTradeWindowSessionCount(t *testing.T) {
	w := NewTradeWindow(time.Hour)
	base := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	w.Record("acct-1", "ESU5", decimal.Zero, base)
	w.Record("acct-1", "ESU5", decimal.Zero, base.Add(time.Minute))
	if got := w.SessionCount("acct-1"); got != 2 {
		t.Fatalf("expected session count 2, got %d", got)
	}

	w.ResetSession("acct-1", base.Add(2*time.Minute))
	if got := w.SessionCount("acct-1"); got != 0 {
		t.Fatalf("expected session count 0 after reset, got %d", got)
	}

	// Session counter survives window expiry; only the reset moves it.
	w.Record("acct-1", "ESU5", decimal.Zero, base.Add(3*time.Minute))
	if got := w.SessionCount("acct-1"); got != 1 {
		t.Fatalf("expected session count 1, got %d", got)
	}
}

func TestTradeWindowLastTradeLoss(t *testing.T) {
	w := NewTradeWindow(time.Hour)
	base := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	if _, loss := w.LastTradeLoss("acct-1", base); loss {
		t.Fatalf("empty window must not report a loss")
	}

	w.Record("acct-1", "ESU5", decimal.RequireFromString("-120"), base)
	at, loss := w.LastTradeLoss("acct-1", base.Add(time.Minute))
	if !loss || !at.Equal(base) {
		t.Fatalf("expected loss at %v, got at=%v loss=%v", base, at, loss)
	}

	// A winning trade after the loss clears the cooldown trigger.
	w.Record("acct-1", "ESU5", decimal.RequireFromString("50"), base.Add(2*time.Minute))
	if _, loss := w.LastTradeLoss("acct-1", base.Add(3*time.Minute)); loss {
		t.Fatalf("most recent trade was a win, must not report a loss")
	}
}

func TestTradeWindowSeed(t *testing.T) {
	w := NewTradeWindow(time.Hour)
	sessionStart := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	w.Seed("acct-1", sessionStart, []TradeSeed{
		{Symbol: "ESU5", PnL: decimal.RequireFromString("-10"), ExecutedAt: sessionStart.Add(-10 * time.Minute)},
		{Symbol: "ESU5", PnL: decimal.RequireFromString("25"), ExecutedAt: sessionStart.Add(5 * time.Minute)},
		{Symbol: "NQU5", PnL: decimal.RequireFromString("5"), ExecutedAt: sessionStart.Add(10 * time.Minute)},
	})

	// Pre-session trades count toward the rolling window but not the session.
	if got := w.SessionCount("acct-1"); got != 2 {
		t.Fatalf("expected session count 2 after seed, got %d", got)
	}
	if got := w.CountInWindow("acct-1", sessionStart.Add(10*time.Minute)); got != 3 {
		t.Fatalf("expected 3 trades in window after seed, got %d", got)
	}
}
