package rules

import (
	"fmt"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// frequencyRule caps trades per rolling window. Overtrading flattens the
// account and imposes a timed lockout.
type frequencyRule struct {
	cfg Config
}

func (r *frequencyRule) ID() string    { return "trade_frequency" }
func (r *frequencyRule) Enabled() bool { return r.cfg.FrequencyEnabled }

func (r *frequencyRule) Check(ev *events.Event, view View) *Breach {
	if ev.Trade == nil {
		return nil
	}

	count := view.TradesInWindow(ev.AccountID)
	if count <= r.cfg.FrequencyMax {
		return nil
	}

	until := view.Now().Add(r.cfg.FrequencyLockFor)
	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("%d trades in window exceed limit %d", count, r.cfg.FrequencyMax),
		Action: Action{
			Kind: model.ActionCloseAll,
			Lockout: &LockoutSpec{
				Reason: model.LockoutReasonCadence,
				Until:  &until,
			},
		},
	}
}

// cooldownRule enforces a pause after a losing trade: the loss flattens the
// account and locks it for the configured cooldown.
type cooldownRule struct {
	cfg Config
}

func (r *cooldownRule) ID() string    { return "cooldown_after_loss" }
func (r *cooldownRule) Enabled() bool { return r.cfg.CooldownEnabled }

func (r *cooldownRule) Check(ev *events.Event, view View) *Breach {
	if ev.Trade == nil {
		return nil
	}
	if !ev.Trade.PnL.IsNegative() {
		return nil
	}

	until := view.Now().Add(r.cfg.CooldownDuration)
	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("losing trade (%s) triggers cooldown", ev.Trade.PnL.StringFixed(2)),
		Action: Action{
			Kind: model.ActionCloseAll,
			Lockout: &LockoutSpec{
				Reason: model.LockoutReasonCadence,
				Until:  &until,
			},
		},
	}
}
