package state

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// tradeMark is one executed trade in the rolling window.
type tradeMark struct {
	symbol     string
	pnl        decimal.Decimal
	executedAt time.Time
}

// TradeWindow keeps a rolling window of executed trades per account plus a
// session counter. Counts derived here must equal counts from the durable
// trade history over the same interval; the window is pruned on read so the
// two can never drift apart by more than expiry.
type TradeWindow struct {
	mu           sync.Mutex
	window       time.Duration
	trades       map[string][]tradeMark // key: account id
	sessionStart map[string]time.Time
	sessionCount map[string]int
}

// NewTradeWindow builds a window of the given width (default one hour when
// zero or negative).
func NewTradeWindow(window time.Duration) *TradeWindow {
	if window <= 0 {
		window = time.Hour
	}
	return &TradeWindow{
		window:       window,
		trades:       make(map[string][]tradeMark),
		sessionStart: make(map[string]time.Time),
		sessionCount: make(map[string]int),
	}
}

// Record adds one executed trade.
func (w *TradeWindow) Record(accountID, symbol string, pnl decimal.Decimal, executedAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trades[accountID] = append(w.trades[accountID], tradeMark{
		symbol:     symbol,
		pnl:        pnl,
		executedAt: executedAt,
	})
	if !executedAt.Before(w.sessionStart[accountID]) {
		w.sessionCount[accountID]++
	}
	w.prune(accountID, executedAt)
}

// CountInWindow returns the number of trades inside the rolling window as of
// now.
func (w *TradeWindow) CountInWindow(accountID string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(accountID, now)
	return len(w.trades[accountID])
}

// SessionCount returns trades executed since the session marker.
func (w *TradeWindow) SessionCount(accountID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionCount[accountID]
}

// LastTradeLoss reports whether the most recent recorded trade realized a
// loss, and when it executed. Returns false when the window is empty.
func (w *TradeWindow) LastTradeLoss(accountID string, now time.Time) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(accountID, now)

	marks := w.trades[accountID]
	if len(marks) == 0 {
		return time.Time{}, false
	}
	last := marks[len(marks)-1]
	return last.executedAt, last.pnl.IsNegative()
}

// ResetSession moves the session marker and zeroes the session counter.
// Called by the daily reset.
func (w *TradeWindow) ResetSession(accountID string, startedAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sessionStart[accountID] = startedAt
	w.sessionCount[accountID] = 0
}

// Seed rebuilds the window from durable trade history after a restart.
func (w *TradeWindow) Seed(accountID string, sessionStart time.Time, trades []TradeSeed) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sessionStart[accountID] = sessionStart
	w.sessionCount[accountID] = 0
	w.trades[accountID] = nil
	for _, t := range trades {
		w.trades[accountID] = append(w.trades[accountID], tradeMark{
			symbol:     t.Symbol,
			pnl:        t.PnL,
			executedAt: t.ExecutedAt,
		})
		if !t.ExecutedAt.Before(sessionStart) {
			w.sessionCount[accountID]++
		}
	}
}

// TradeSeed is the restart-rebuild input, decoupled from the gorm model.
type TradeSeed struct {
	Symbol     string
	PnL        decimal.Decimal
	ExecutedAt time.Time
}

// prune drops trades that fell out of the rolling window. Caller holds the
// lock.
func (w *TradeWindow) prune(accountID string, now time.Time) {
	cutoff := now.Add(-w.window)
	marks := w.trades[accountID]
	keep := 0
	for keep < len(marks) && marks[keep].executedAt.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		w.trades[accountID] = append([]tradeMark(nil), marks[keep:]...)
	}
}
