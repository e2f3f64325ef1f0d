package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// dailyLossRule locks the account for the rest of the session once realized
// daily P&L falls below the configured (negative) limit. The limit itself is
// not a breach: with limit -500, a realized P&L of exactly -500 passes and
// -500.01 breaches.
type dailyLossRule struct {
	cfg Config
}

func (r *dailyLossRule) ID() string    { return "daily_realized_loss" }
func (r *dailyLossRule) Enabled() bool { return r.cfg.DailyLossEnabled }

func (r *dailyLossRule) Check(ev *events.Event, view View) *Breach {
	if ev.Trade == nil {
		return nil
	}

	realized := view.RealizedPnL(ev.AccountID)
	limit := decimal.NewFromFloat(r.cfg.DailyLossLimit)
	if !breaches(realized, limit) {
		return nil
	}

	until := view.NextReset()
	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("daily realized P&L %s below limit %s", realized.StringFixed(2), limit.StringFixed(2)),
		Action: Action{
			Kind: model.ActionCloseAll,
			Lockout: &LockoutSpec{
				Reason: model.LockoutReasonDailyLimit,
				Until:  &until,
			},
		},
	}
}

// unrealizedLossRule flattens the account when open P&L falls below the
// configured floor, optionally locking the account for a cooldown.
type unrealizedLossRule struct {
	cfg Config
}

func (r *unrealizedLossRule) ID() string    { return "max_unrealized_loss" }
func (r *unrealizedLossRule) Enabled() bool { return r.cfg.UnrealizedLossEnabled }

func (r *unrealizedLossRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil && ev.Quote == nil {
		return nil
	}

	open := view.UnrealizedPnL(ev.AccountID)
	limit := decimal.NewFromFloat(r.cfg.UnrealizedLossLimit)
	if !breaches(open, limit) {
		return nil
	}

	breach := &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("unrealized P&L %s below limit %s", open.StringFixed(2), limit.StringFixed(2)),
		Action: Action{Kind: model.ActionCloseAll},
	}
	if r.cfg.UnrealizedLossLockout {
		until := view.Now().Add(r.cfg.UnrealizedLossLockFor)
		breach.Action.Lockout = &LockoutSpec{
			Reason: model.LockoutReasonUnrealizedPL,
			Until:  &until,
		}
	}
	return breach
}

// unrealizedProfitRule banks open profit once it crosses the configured
// target.
type unrealizedProfitRule struct {
	cfg Config
}

func (r *unrealizedProfitRule) ID() string    { return "max_unrealized_profit" }
func (r *unrealizedProfitRule) Enabled() bool { return r.cfg.UnrealizedProfitEnabled }

func (r *unrealizedProfitRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil && ev.Quote == nil {
		return nil
	}

	open := view.UnrealizedPnL(ev.AccountID)
	target := decimal.NewFromFloat(r.cfg.UnrealizedProfitTarget)
	if !exceeds(open, target) {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("unrealized P&L %s above target %s", open.StringFixed(2), target.StringFixed(2)),
		Action: Action{Kind: model.ActionCloseAll},
	}
}
