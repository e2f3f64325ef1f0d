package router

import (
	"time"

	"github.com/shopspring/decimal"

	"riskenforcer/src/model"
	"riskenforcer/src/reset"
	"riskenforcer/src/state"
)

// stateView is the read-only query surface handed to rules. It adapts the
// concrete state stores to the rules.View contract; rules never see the
// mutable containers themselves.
type stateView struct {
	mirror    *state.Mirror
	pnl       *state.PnLTracker
	quotes    *state.QuoteCache
	contracts *state.ContractCache
	trades    *state.TradeWindow
	scheduler *reset.Scheduler
	clock     func() time.Time
}

func (v *stateView) NetContracts(accountID string) int {
	return v.mirror.NetContracts(accountID)
}

func (v *stateView) GrossContracts(accountID string) int {
	return v.mirror.GrossContracts(accountID)
}

func (v *stateView) ContractsForSymbol(accountID, symbol string) int {
	return v.mirror.ContractsForSymbol(accountID, symbol)
}

func (v *stateView) RealizedPnL(accountID string) decimal.Decimal {
	return v.pnl.Realized(accountID)
}

func (v *stateView) UnrealizedPnL(accountID string) decimal.Decimal {
	return state.UnrealizedPnL(v.mirror, v.quotes, v.contracts, accountID, v.clock())
}

func (v *stateView) Positions(accountID string) []model.MirroredPosition {
	return v.mirror.Positions(accountID)
}

func (v *stateView) UnprotectedPositions(accountID string, openedBefore time.Time) []model.MirroredPosition {
	return v.mirror.UnprotectedPositions(accountID, openedBefore)
}

func (v *stateView) HasProtectiveOrder(accountID, symbol, direction string) bool {
	return v.mirror.HasProtectiveOrder(accountID, symbol, direction)
}

func (v *stateView) TradesInWindow(accountID string) int {
	return v.trades.CountInWindow(accountID, v.clock())
}

func (v *stateView) TickSize(symbol string) (decimal.Decimal, bool) {
	meta, ok := v.contracts.Cached(symbol)
	if !ok || meta.TickSize <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(meta.TickSize), true
}

func (v *stateView) NextReset() time.Time {
	return v.scheduler.NextReset(v.clock())
}

func (v *stateView) Now() time.Time {
	return v.clock()
}
