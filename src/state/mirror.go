package state

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// Mirror is the in-process authoritative copy of venue positions and working
// orders. All mutation happens from the event lane or from reconciliation;
// reads may come from background sweeps, so everything is guarded.
type Mirror struct {
	mu        sync.RWMutex
	positions map[string]model.MirroredPosition // key: position id
	orders    map[string]model.MirroredOrder    // key: order id
}

func NewMirror() *Mirror {
	return &Mirror{
		positions: make(map[string]model.MirroredPosition),
		orders:    make(map[string]model.MirroredOrder),
	}
}

// ApplyPosition upserts a position snapshot. Size zero removes it. Applying
// the same snapshot twice is a no-op beyond the first application.
func (m *Mirror) ApplyPosition(accountID string, p *events.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Size == 0 {
		delete(m.positions, p.PositionID)
		return
	}

	m.positions[p.PositionID] = model.MirroredPosition{
		PositionID: p.PositionID,
		AccountID:  accountID,
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		Size:       p.Size,
		EntryPrice: p.EntryPrice,
		OpenedAt:   p.OpenedAt,
	}
}

// ApplyOrder upserts an order snapshot. Terminal states remove the order.
func (m *Mirror) ApplyOrder(accountID string, o *events.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if model.TerminalOrderState(o.State) {
		delete(m.orders, o.OrderID)
		return
	}

	m.orders[o.OrderID] = model.MirroredOrder{
		OrderID:    o.OrderID,
		AccountID:  accountID,
		Symbol:     o.Symbol,
		Kind:       o.Kind,
		Side:       o.Side,
		Size:       o.Size,
		LimitPrice: o.LimitPrice,
		StopPrice:  o.StopPrice,
		State:      o.State,
		PlacedAt:   o.PlacedAt,
	}
}

// Seed loads persisted rows into an empty mirror at startup.
func (m *Mirror) Seed(positions []model.MirroredPosition, orders []model.MirroredOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range positions {
		m.positions[p.PositionID] = p
	}
	for _, o := range orders {
		m.orders[o.OrderID] = o
	}
}

// ReplaceAccount swaps one account's positions and orders for the
// authoritative snapshot fetched during reconciliation.
func (m *Mirror) ReplaceAccount(accountID string, positions []model.MirroredPosition, orders []model.MirroredOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.positions {
		if p.AccountID == accountID {
			delete(m.positions, id)
		}
	}
	for id, o := range m.orders {
		if o.AccountID == accountID {
			delete(m.orders, id)
		}
	}
	for _, p := range positions {
		m.positions[p.PositionID] = p
	}
	for _, o := range orders {
		m.orders[o.OrderID] = o
	}

	logger.WithFields(map[string]interface{}{
		"account":   accountID,
		"positions": len(positions),
		"orders":    len(orders),
	}).Info("Mirror reconciled for account")
}

// Positions returns copies of the account's open positions.
func (m *Mirror) Positions(accountID string) []model.MirroredPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.MirroredPosition
	for _, p := range m.positions {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out
}

// Orders returns copies of the account's working orders.
func (m *Mirror) Orders(accountID string) []model.MirroredOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.MirroredOrder
	for _, o := range m.orders {
		if o.AccountID == accountID {
			out = append(out, o)
		}
	}
	return out
}

// AccountsWithSymbol returns the accounts holding an open position in the
// given instrument. Used to fan quote events out to the affected accounts.
func (m *Mirror) AccountsWithSymbol(symbol string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, p := range m.positions {
		if p.Symbol == symbol && !seen[p.AccountID] {
			seen[p.AccountID] = true
			out = append(out, p.AccountID)
		}
	}
	return out
}

// NetContracts returns the signed open contract count for an account, longs
// positive and shorts negative.
func (m *Mirror) NetContracts(accountID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	net := 0
	for _, p := range m.positions {
		if p.AccountID != accountID {
			continue
		}
		if p.Direction == model.PositionDirectionShort {
			net -= p.Size
		} else {
			net += p.Size
		}
	}
	return net
}

// GrossContracts returns the unsigned open contract count for an account.
func (m *Mirror) GrossContracts(accountID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gross := 0
	for _, p := range m.positions {
		if p.AccountID == accountID {
			gross += p.Size
		}
	}
	return gross
}

// ContractsForSymbol returns the unsigned open contract count for one symbol.
func (m *Mirror) ContractsForSymbol(accountID, symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, p := range m.positions {
		if p.AccountID == accountID && p.Symbol == symbol {
			total += p.Size
		}
	}
	return total
}

// HasProtectiveOrder reports whether a working stop order exists on the
// opposite side of the given position.
func (m *Mirror) HasProtectiveOrder(accountID, symbol, direction string) bool {
	protectiveSide := model.OrderSideSell
	if direction == model.PositionDirectionShort {
		protectiveSide = model.OrderSideBuy
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orders {
		if o.AccountID != accountID || o.Symbol != symbol {
			continue
		}
		if o.Kind == model.OrderKindStop && o.Side == protectiveSide {
			return true
		}
	}
	return false
}

// UnprotectedPositions returns open positions with no working protective stop
// that were opened at or before the cutoff.
func (m *Mirror) UnprotectedPositions(accountID string, openedBefore time.Time) []model.MirroredPosition {
	positions := m.Positions(accountID)

	var out []model.MirroredPosition
	for _, p := range positions {
		if p.OpenedAt.After(openedBefore) {
			continue
		}
		if !m.HasProtectiveOrder(accountID, p.Symbol, p.Direction) {
			out = append(out, p)
		}
	}
	return out
}
