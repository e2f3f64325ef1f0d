package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// autoStopRule places a protective stop for any open position that lacks
// one, at the configured tick distance from entry. It runs before the grace
// rule so a position gets its stop before the grace clock can close it.
type autoStopRule struct {
	cfg Config
}

func (r *autoStopRule) ID() string    { return "protective_stop_auto" }
func (r *autoStopRule) Enabled() bool { return r.cfg.AutoStopEnabled }

func (r *autoStopRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil && ev.Order == nil {
		return nil
	}

	// Any unprotected position qualifies, regardless of age.
	candidates := view.UnprotectedPositions(ev.AccountID, view.Now())
	if len(candidates) == 0 {
		return nil
	}
	p := candidates[0]

	tickSize, ok := view.TickSize(p.Symbol)
	if !ok || tickSize.LessThanOrEqual(decimal.Zero) {
		// No tick geometry yet; the grace rule remains the backstop.
		return nil
	}

	distance := tickSize.Mul(decimal.NewFromInt(int64(r.cfg.AutoStopTicks)))
	entry := decimal.NewFromFloat(p.EntryPrice)

	var stop decimal.Decimal
	side := model.OrderSideSell
	if p.Direction == model.PositionDirectionShort {
		stop = entry.Add(distance)
		side = model.OrderSideBuy
	} else {
		stop = entry.Sub(distance)
	}

	stopPrice, _ := stop.Float64()
	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("position %s on %s has no protective stop", p.PositionID, p.Symbol),
		Action: Action{
			Kind:      model.ActionPlaceProtective,
			Symbol:    p.Symbol,
			Size:      p.Size,
			Side:      side,
			StopPrice: stopPrice,
		},
	}
}

// graceRule closes positions that have stayed unprotected beyond the grace
// period. If the auto-stop rule is enabled and succeeds first, this rule
// never sees an aged unprotected position.
type graceRule struct {
	cfg Config
}

func (r *graceRule) ID() string    { return "protective_stop_grace" }
func (r *graceRule) Enabled() bool { return r.cfg.GraceEnabled }

func (r *graceRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil && ev.Order == nil {
		return nil
	}

	cutoff := view.Now().Add(-r.cfg.GracePeriod)
	aged := view.UnprotectedPositions(ev.AccountID, cutoff)
	if len(aged) == 0 {
		return nil
	}
	p := aged[0]

	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("position %s on %s unprotected beyond grace period %s", p.PositionID, p.Symbol, r.cfg.GracePeriod),
		Action: Action{Kind: model.ActionClosePosition, Symbol: p.Symbol},
	}
}
