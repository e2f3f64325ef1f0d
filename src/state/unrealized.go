package state

import (
	"time"

	"github.com/shopspring/decimal"

	"riskenforcer/src/model"
)

// UnrealizedPnL computes an account's open P&L on demand from live quotes and
// cached tick geometry:
//
//	(last − entry) / tickSize × tickValue × size, sign-adjusted for direction.
//
// A position with no usable quote or no cached contract metadata is excluded
// from the sum rather than raising; partial truth beats a blown-up rule.
func UnrealizedPnL(mirror *Mirror, quotes *QuoteCache, contracts *ContractCache, accountID string, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, p := range mirror.Positions(accountID) {
		if v, ok := UnrealizedForPosition(p, quotes, contracts, now); ok {
			total = total.Add(v)
		}
	}
	return total
}

// UnrealizedForPosition prices one position. The bool result is false when a
// quote or contract metadata is missing.
func UnrealizedForPosition(p model.MirroredPosition, quotes *QuoteCache, contracts *ContractCache, now time.Time) (decimal.Decimal, bool) {
	quote, ok := quotes.Latest(p.Symbol, now)
	if !ok {
		return decimal.Zero, false
	}
	meta, ok := contracts.Cached(p.Symbol)
	if !ok || meta.TickSize <= 0 {
		return decimal.Zero, false
	}

	entry := decimal.NewFromFloat(p.EntryPrice)
	tickSize := decimal.NewFromFloat(meta.TickSize)
	tickValue := decimal.NewFromFloat(meta.TickValue)
	size := decimal.NewFromInt(int64(p.Size))

	move := quote.Last.Sub(entry)
	if p.Direction == model.PositionDirectionShort {
		move = move.Neg()
	}

	return move.Div(tickSize).Mul(tickValue).Mul(size), true
}
