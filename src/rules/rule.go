package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// View is the read-only state surface a rule may consult. Rules never mutate
// shared state; only the enforcement executor does, through actions.
type View interface {
	NetContracts(accountID string) int
	GrossContracts(accountID string) int
	ContractsForSymbol(accountID, symbol string) int
	RealizedPnL(accountID string) decimal.Decimal
	UnrealizedPnL(accountID string) decimal.Decimal
	Positions(accountID string) []model.MirroredPosition
	UnprotectedPositions(accountID string, openedBefore time.Time) []model.MirroredPosition
	HasProtectiveOrder(accountID, symbol, direction string) bool
	TradesInWindow(accountID string) int
	TickSize(symbol string) (decimal.Decimal, bool)
	NextReset() time.Time
	Now() time.Time
}

// LockoutSpec asks the executor to lock the account as part of enforcement.
// Until nil means permanent.
type LockoutSpec struct {
	Reason string
	Until  *time.Time
}

// Action is the enforcement a breach requires. Kind is one of the
// model.Action* constants; the symbol/order fields qualify kinds that target
// a single position or order.
type Action struct {
	Kind      string
	Symbol    string
	OrderID   string
	Size      int
	StopPrice float64
	Side      string
	Lockout   *LockoutSpec
}

// Breach is a rule's determination that current state violates its
// threshold. Nil means no breach.
type Breach struct {
	RuleID string
	Reason string
	Action Action
}

// Rule is the capability contract every evaluator implements. Check must be
// pure with respect to its inputs and must tolerate missing event fields by
// returning nil, never by panicking (the router isolates panics regardless).
type Rule interface {
	ID() string
	Enabled() bool
	Check(ev *events.Event, view View) *Breach
}

// exceeds applies the strict-inequality boundary policy for upper limits:
// the limit value itself is not a breach.
func exceeds(value, limit decimal.Decimal) bool {
	return value.GreaterThan(limit)
}

// breaches applies the strict-inequality policy for lower (loss) limits.
func breaches(value, limit decimal.Decimal) bool {
	return value.LessThan(limit)
}

// Registry maps every inbound event type to its statically ordered rule
// list. The router walks the list in order and stops at the first breach.
type Registry struct {
	byType map[events.Type][]Rule
}

// NewRegistry builds the full 12-rule set from configuration and wires the
// static event-type dispatch table.
func NewRegistry(cfg Config) (*Registry, error) {
	maxContracts := &maxContractsRule{cfg: cfg}
	perInstrument := &perInstrumentRule{cfg: cfg}
	dailyLoss := &dailyLossRule{cfg: cfg}
	unrealLoss := &unrealizedLossRule{cfg: cfg}
	unrealProfit := &unrealizedProfitRule{cfg: cfg}
	frequency := &frequencyRule{cfg: cfg}
	cooldown := &cooldownRule{cfg: cfg}
	autoStop := &autoStopRule{cfg: cfg}
	grace := &graceRule{cfg: cfg}
	hours, err := newHoursRule(cfg)
	if err != nil {
		return nil, err
	}
	blocked := newBlockedSymbolsRule(cfg)
	authGuard := newAuthGuardRule(cfg)

	return &Registry{
		byType: map[events.Type][]Rule{
			events.TypeTrade: {dailyLoss, frequency, cooldown},
			events.TypePosition: {
				maxContracts, perInstrument,
				blocked, hours,
				unrealLoss, unrealProfit,
				autoStop, grace,
			},
			events.TypeOrder:         {blocked, hours, autoStop, grace},
			events.TypeQuote:         {unrealLoss, unrealProfit},
			events.TypeAccountStatus: {authGuard},
		},
	}, nil
}

// For returns the ordered rule list for an event type.
func (r *Registry) For(t events.Type) []Rule {
	return r.byType[t]
}

// All returns every distinct rule, for reporting.
func (r *Registry) All() []Rule {
	seen := make(map[string]bool)
	var out []Rule
	for _, list := range r.byType {
		for _, rule := range list {
			if !seen[rule.ID()] {
				seen[rule.ID()] = true
				out = append(out, rule)
			}
		}
	}
	return out
}
