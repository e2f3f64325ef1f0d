package rules

import (
	"fmt"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// maxContractsRule caps aggregate open exposure for an account. Evaluated on
// position updates against the absolute net open contract count.
type maxContractsRule struct {
	cfg Config
}

func (r *maxContractsRule) ID() string    { return "max_contracts" }
func (r *maxContractsRule) Enabled() bool { return r.cfg.MaxContractsEnabled }

func (r *maxContractsRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil {
		return nil
	}

	net := view.NetContracts(ev.AccountID)
	if net < 0 {
		net = -net
	}
	if net <= r.cfg.MaxContracts {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("open contracts %d exceed limit %d", net, r.cfg.MaxContracts),
		Action: Action{Kind: model.ActionCloseAll},
	}
}

// perInstrumentRule caps open exposure on a single instrument.
type perInstrumentRule struct {
	cfg Config
}

func (r *perInstrumentRule) ID() string    { return "max_contracts_per_instrument" }
func (r *perInstrumentRule) Enabled() bool { return r.cfg.PerInstrumentEnabled }

func (r *perInstrumentRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil || ev.Position.Symbol == "" {
		return nil
	}

	symbol := ev.Position.Symbol
	open := view.ContractsForSymbol(ev.AccountID, symbol)
	if open <= r.cfg.PerInstrumentMax {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("%s open contracts %d exceed per-instrument limit %d", symbol, open, r.cfg.PerInstrumentMax),
		Action: Action{Kind: model.ActionClosePosition, Symbol: symbol},
	}
}
