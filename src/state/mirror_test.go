package state

import (
	"testing"
	"time"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

func TestMirrorApplyPosition(t *testing.T) {
	m := NewMirror()
	opened := time.Date(2025, time.June, 2, 14, 30, 0, 0, time.UTC)

	snapshot := &events.Position{
		PositionID: "p-1",
		Symbol:     "ESU5",
		Direction:  model.PositionDirectionLong,
		Size:       3,
		EntryPrice: 5400.25,
		OpenedAt:   opened,
	}

	m.ApplyPosition("acct-1", snapshot)
	m.ApplyPosition("acct-1", snapshot) // duplicate snapshot, must be a no-op

	positions := m.Positions("acct-1")
	if len(positions) != 1 {
		t.Fatalf("expected 1 position after duplicate apply, got %d", len(positions))
	}
	if positions[0].Size != 3 || positions[0].Symbol != "ESU5" {
		t.Fatalf("unexpected position state: %+v", positions[0])
	}

	// Size zero closes the position.
	m.ApplyPosition("acct-1", &events.Position{PositionID: "p-1", Symbol: "ESU5", Size: 0})
	if got := m.Positions("acct-1"); len(got) != 0 {
		t.Fatalf("expected position removed on zero-size snapshot, got %+v", got)
	}
}

func TestMirrorApplyOrderTerminalStates(t *testing.T) {
	m := NewMirror()

	m.ApplyOrder("acct-1", &events.Order{
		OrderID: "o-1",
		Symbol:  "NQU5",
		Kind:    model.OrderKindStop,
		Side:    model.OrderSideSell,
		Size:    2,
		State:   model.OrderStateWorking,
	})
	if len(m.Orders("acct-1")) != 1 {
		t.Fatalf("expected working order in mirror")
	}

	for _, terminal := range []string{model.OrderStateFilled, model.OrderStateCancelled, model.OrderStateRejected} {
		m.ApplyOrder("acct-1", &events.Order{OrderID: "o-1", Symbol: "NQU5", State: model.OrderStateWorking})
		m.ApplyOrder("acct-1", &events.Order{OrderID: "o-1", Symbol: "NQU5", State: terminal})
		if got := m.Orders("acct-1"); len(got) != 0 {
			t.Fatalf("state %q: expected order removed, got %+v", terminal, got)
		}
	}
}

func TestMirrorContractCounts(t *testing.T) {
	m := NewMirror()
	m.Seed([]model.MirroredPosition{
		{PositionID: "p-1", AccountID: "acct-1", Symbol: "ESU5", Direction: model.PositionDirectionLong, Size: 4},
		{PositionID: "p-2", AccountID: "acct-1", Symbol: "NQU5", Direction: model.PositionDirectionShort, Size: 3},
		{PositionID: "p-3", AccountID: "acct-2", Symbol: "ESU5", Direction: model.PositionDirectionLong, Size: 10},
	}, nil)

	if net := m.NetContracts("acct-1"); net != 1 {
		t.Fatalf("expected net 1 (4 long - 3 short), got %d", net)
	}
	if gross := m.GrossContracts("acct-1"); gross != 7 {
		t.Fatalf("expected gross 7, got %d", gross)
	}
	if perSymbol := m.ContractsForSymbol("acct-1", "ESU5"); perSymbol != 4 {
		t.Fatalf("expected 4 ES contracts, got %d", perSymbol)
	}
	if net := m.NetContracts("acct-3"); net != 0 {
		t.Fatalf("expected 0 for unknown account, got %d", net)
	}
}

func TestMirrorAccountsWithSymbol(t *testing.T) {
	m := NewMirror()
	m.Seed([]model.MirroredPosition{
		{PositionID: "p-1", AccountID: "acct-1", Symbol: "ESU5", Size: 1},
		{PositionID: "p-2", AccountID: "acct-2", Symbol: "ESU5", Size: 2},
		{PositionID: "p-3", AccountID: "acct-2", Symbol: "NQU5", Size: 2},
	}, nil)

	holders := m.AccountsWithSymbol("ESU5")
	if len(holders) != 2 {
		t.Fatalf("expected 2 accounts holding ESU5, got %v", holders)
	}
	if holders := m.AccountsWithSymbol("CLU5"); len(holders) != 0 {
		t.Fatalf("expected no holders for CLU5, got %v", holders)
	}
}

func TestMirrorReplaceAccount(t *testing.T) {
	m := NewMirror()
	m.Seed([]model.MirroredPosition{
		{PositionID: "p-1", AccountID: "acct-1", Symbol: "ESU5", Size: 2},
		{PositionID: "p-2", AccountID: "acct-1", Symbol: "NQU5", Size: 1},
		{PositionID: "p-3", AccountID: "acct-2", Symbol: "ESU5", Size: 5},
	}, []model.MirroredOrder{
		{OrderID: "o-1", AccountID: "acct-1", Symbol: "ESU5", State: model.OrderStateWorking},
	})

	// The venue says acct-1 now holds a single position and no orders.
	m.ReplaceAccount("acct-1", []model.MirroredPosition{
		{PositionID: "p-9", AccountID: "acct-1", Symbol: "ESU5", Size: 1},
	}, nil)

	positions := m.Positions("acct-1")
	if len(positions) != 1 || positions[0].PositionID != "p-9" {
		t.Fatalf("expected only reconciled position, got %+v", positions)
	}
	if orders := m.Orders("acct-1"); len(orders) != 0 {
		t.Fatalf("expected stale order dropped, got %+v", orders)
	}
	// Other accounts untouched.
	if got := m.Positions("acct-2"); len(got) != 1 {
		t.Fatalf("expected acct-2 position preserved, got %+v", got)
	}
}

func TestMirrorProtectiveOrders(t *testing.T) {
	m := NewMirror()
	opened := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	m.Seed([]model.MirroredPosition{
		{PositionID: "p-1", AccountID: "acct-1", Symbol: "ESU5", Direction: model.PositionDirectionLong, Size: 2, OpenedAt: opened},
		{PositionID: "p-2", AccountID: "acct-1", Symbol: "NQU5", Direction: model.PositionDirectionShort, Size: 1, OpenedAt: opened},
	}, []model.MirroredOrder{
		// Sell stop protects the long ES position.
		{OrderID: "o-1", AccountID: "acct-1", Symbol: "ESU5", Kind: model.OrderKindStop, Side: model.OrderSideSell, State: model.OrderStateWorking},
		// Sell stop on NQ is the wrong side for a short position.
		{OrderID: "o-2", AccountID: "acct-1", Symbol: "NQU5", Kind: model.OrderKindStop, Side: model.OrderSideSell, State: model.OrderStateWorking},
	})

	if !m.HasProtectiveOrder("acct-1", "ESU5", model.PositionDirectionLong) {
		t.Fatalf("expected ES long to be protected by sell stop")
	}
	if m.HasProtectiveOrder("acct-1", "NQU5", model.PositionDirectionShort) {
		t.Fatalf("short position must not count a sell stop as protection")
	}

	unprotected := m.UnprotectedPositions("acct-1", opened.Add(time.Minute))
	if len(unprotected) != 1 || unprotected[0].Symbol != "NQU5" {
		t.Fatalf("expected only NQ position unprotected, got %+v", unprotected)
	}

	// Positions newer than the cutoff are still inside their grace window.
	if got := m.UnprotectedPositions("acct-1", opened.Add(-time.Minute)); len(got) != 0 {
		t.Fatalf("expected no unprotected positions before cutoff, got %+v", got)
	}
}
