package state

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PnLTracker accumulates per-account realized P&L for the current trading
// day. The number is exactly the sum of venue-reported trade P&L; nothing
// else feeds it. Accumulation is commutative, so replay order within a day
// does not matter.
type PnLTracker struct {
	mu       sync.RWMutex
	realized map[string]decimal.Decimal // key: account id
	day      map[string]string          // key: account id, value: YYYY-MM-DD
}

func NewPnLTracker() *PnLTracker {
	return &PnLTracker{
		realized: make(map[string]decimal.Decimal),
		day:      make(map[string]string),
	}
}

// Add accumulates one trade's P&L for the account's given trading day. A
// delta arriving for a different day than the tracked one rolls the tracker
// to the new day first.
func (t *PnLTracker) Add(accountID, tradingDay string, pnl decimal.Decimal) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.day[accountID] != tradingDay {
		t.day[accountID] = tradingDay
		t.realized[accountID] = decimal.Zero
	}

	total := t.realized[accountID].Add(pnl)
	t.realized[accountID] = total
	return total
}

// Realized returns the account's accumulated realized P&L for the tracked day.
func (t *PnLTracker) Realized(accountID string) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.realized[accountID]
}

// Reset zeroes the account for a new trading day.
func (t *PnLTracker) Reset(accountID, tradingDay string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.day[accountID] = tradingDay
	t.realized[accountID] = decimal.Zero
}

// Seed restores a persisted total after a restart.
func (t *PnLTracker) Seed(accountID, tradingDay string, realized decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.day[accountID] = tradingDay
	t.realized[accountID] = realized
}
