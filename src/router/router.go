package router

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/broadcast"
	"riskenforcer/src/enforce"
	"riskenforcer/src/events"
	"riskenforcer/src/lockout"
	"riskenforcer/src/model"
	"riskenforcer/src/reset"
	"riskenforcer/src/rules"
	"riskenforcer/src/state"
	"riskenforcer/src/timers"
)

// Writer buffers asynchronous durable writes (mirror snapshots, trade
// history). Implemented by the engine's batched persistence writer.
type Writer interface {
	EnqueuePosition(pos model.MirroredPosition, removed bool)
	EnqueueOrder(order model.MirroredOrder, removed bool)
	EnqueueTrade(trade model.TradeRecord)
}

const graceTimerName = "stop_grace"

// Router is the event-processing spine: on each inbound event it updates
// derived state, consults the lockout gate, dispatches the statically-mapped
// rule list for the event's variant, and hands the first breach to the
// enforcement executor. It runs on a single event lane; Route is never
// called concurrently with itself.
type Router struct {
	mirror    *state.Mirror
	pnl       *state.PnLTracker
	quotes    *state.QuoteCache
	contracts *state.ContractCache
	trades    *state.TradeWindow

	lockouts  *lockout.Manager
	timers    *timers.Manager
	registry  *rules.Registry
	executor  *enforce.Executor
	hub       *broadcast.Hub
	scheduler *reset.Scheduler

	pnlStore    PnLSyncStore
	writer      Writer
	gracePeriod time.Duration

	view  *stateView
	clock func() time.Time
}

// PnLSyncStore is the synchronous durable side of realized P&L: a trade
// event is not acknowledged until its delta is written. Implemented by
// repository.PnLRepository.
type PnLSyncStore interface {
	Accumulate(ctx context.Context, accountID, tradingDay string, delta decimal.Decimal) error
}

func New(
	mirror *state.Mirror,
	pnl *state.PnLTracker,
	quotes *state.QuoteCache,
	contracts *state.ContractCache,
	trades *state.TradeWindow,
	lockouts *lockout.Manager,
	timerMgr *timers.Manager,
	registry *rules.Registry,
	executor *enforce.Executor,
	hub *broadcast.Hub,
	scheduler *reset.Scheduler,
	pnlStore PnLSyncStore,
	writer Writer,
	gracePeriod time.Duration,
) *Router {
	clock := time.Now
	return &Router{
		mirror:      mirror,
		pnl:         pnl,
		quotes:      quotes,
		contracts:   contracts,
		trades:      trades,
		lockouts:    lockouts,
		timers:      timerMgr,
		registry:    registry,
		executor:    executor,
		hub:         hub,
		scheduler:   scheduler,
		pnlStore:    pnlStore,
		writer:      writer,
		gracePeriod: gracePeriod,
		view: &stateView{
			mirror:    mirror,
			pnl:       pnl,
			quotes:    quotes,
			contracts: contracts,
			trades:    trades,
			scheduler: scheduler,
			clock:     clock,
		},
		clock: clock,
	}
}

// WithClock overrides the time source for the router and its rule view.
func (r *Router) WithClock(clock func() time.Time) *Router {
	r.clock = clock
	r.view.clock = clock
	return r
}

// Route processes one inbound event through the full pipeline. The returned
// error is non-nil only for the state-corruption category (a synchronous
// durable write that stayed failed); everything else is handled in place.
func (r *Router) Route(ctx context.Context, ev *events.Event) error {
	if err := ev.Validate(); err != nil {
		logger.WithError(err).Warn("Dropping malformed event")
		return nil
	}

	// 1. State update. Never skipped, even for locked-out accounts: the
	// mirror must stay accurate regardless of the gate.
	if err := r.updateState(ctx, ev); err != nil {
		return err
	}

	// 2. Lockout gate. A locked account's events update state but are not
	// rule-evaluated; enforcement only ever tightens restrictions, so this
	// is noise reduction, not a correctness requirement.
	if r.gated(ev) {
		r.publish(ev)
		return nil
	}

	// 3. Ordered rule dispatch, first breach wins. A dispatch error means a
	// lockout could not be made durable and the event must not be
	// acknowledged.
	if err := r.dispatch(ctx, ev); err != nil {
		return err
	}

	// 4. Broadcast the processed event.
	r.publish(ev)
	return nil
}

func (r *Router) updateState(ctx context.Context, ev *events.Event) error {
	switch ev.Type {
	case events.TypeTrade:
		t := ev.Trade
		day := r.scheduler.TradingDay(ev.Timestamp)
		r.pnl.Add(ev.AccountID, day, t.PnL)
		r.trades.Record(ev.AccountID, t.Symbol, t.PnL, ev.Timestamp)

		// Daily P&L is in the synchronous durability class: a crash between
		// the in-memory add and this write is unacceptable, so the event is
		// not acknowledged until the row is durable.
		if err := r.pnlStore.Accumulate(ctx, ev.AccountID, day, t.PnL); err != nil {
			return fmt.Errorf("durable P&L write failed for account %s: %w", ev.AccountID, err)
		}

		r.writer.EnqueueTrade(model.TradeRecord{
			TradeID:    t.TradeID,
			AccountID:  ev.AccountID,
			Symbol:     t.Symbol,
			Side:       t.Side,
			Size:       t.Size,
			Price:      t.Price,
			PnL:        t.PnL,
			ExecutedAt: ev.Timestamp,
		})

	case events.TypePosition:
		p := ev.Position
		r.mirror.ApplyPosition(ev.AccountID, p)
		r.writer.EnqueuePosition(model.MirroredPosition{
			PositionID: p.PositionID,
			AccountID:  ev.AccountID,
			Symbol:     p.Symbol,
			Direction:  p.Direction,
			Size:       p.Size,
			EntryPrice: p.EntryPrice,
			OpenedAt:   p.OpenedAt,
		}, p.Size == 0)
		r.ensureContractMeta(p.Symbol)
		r.armGraceTimer(ev.AccountID, p)

	case events.TypeOrder:
		o := ev.Order
		r.mirror.ApplyOrder(ev.AccountID, o)
		r.writer.EnqueueOrder(model.MirroredOrder{
			OrderID:    o.OrderID,
			AccountID:  ev.AccountID,
			Symbol:     o.Symbol,
			Kind:       o.Kind,
			Side:       o.Side,
			Size:       o.Size,
			LimitPrice: o.LimitPrice,
			StopPrice:  o.StopPrice,
			State:      o.State,
			PlacedAt:   o.PlacedAt,
		}, model.TerminalOrderState(o.State))

	case events.TypeQuote:
		if err := r.quotes.Apply(ev.Quote, ev.Timestamp); err != nil {
			logger.WithFields(map[string]interface{}{
				"instrument": ev.Quote.InstrumentID,
			}).WithError(err).Warn("Dropping invalid quote")
		}

	case events.TypeAccountStatus:
		// Nothing derived; the auth guard reads the event directly.
	}
	return nil
}

// ensureContractMeta triggers an off-lane fetch for unseen instruments. The
// hot path never blocks on network I/O; until the fetch lands, rules that
// need tick geometry simply exclude the instrument.
func (r *Router) ensureContractMeta(symbol string) {
	if _, ok := r.contracts.Cached(symbol); ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := r.contracts.Resolve(ctx, symbol); err != nil {
			logger.WithField("instrument", symbol).
				WithError(err).Warn("Contract metadata resolve failed")
		}
	}()
}

// armGraceTimer schedules a protective-stop recheck for a freshly opened
// position. Without it, a position could sit unprotected forever if no
// further events arrive for the account.
func (r *Router) armGraceTimer(accountID string, p *events.Position) {
	if r.gracePeriod <= 0 || p.Size == 0 {
		return
	}
	if r.mirror.HasProtectiveOrder(accountID, p.Symbol, p.Direction) {
		return
	}

	position := *p
	r.timers.Start(graceTimerName+":"+p.PositionID, accountID, r.gracePeriod+time.Second, func() {
		r.RecheckProtection(accountID, &position)
	})
}

// RecheckProtection re-runs the position rule list against current state,
// driven by a grace timer rather than an inbound event.
func (r *Router) RecheckProtection(accountID string, p *events.Position) {
	if r.lockouts.IsLocked(accountID) {
		return
	}
	synthetic := &events.Event{
		Type:      events.TypePosition,
		AccountID: accountID,
		Timestamp: r.clock(),
		Position:  p,
	}
	// Timer callbacks run off the event lane, so a durable lockout failure
	// cannot stop ingestion from here. The in-memory gate still holds.
	if err := r.dispatch(context.Background(), synthetic); err != nil {
		logger.WithField("account", accountID).
			WithError(err).Error("Protection recheck enforcement failed")
	}
}

func (r *Router) gated(ev *events.Event) bool {
	if ev.AccountID == "" {
		return false
	}
	return r.lockouts.IsLocked(ev.AccountID)
}

// dispatch walks the event type's ordered rule list and submits the first
// breach. A quote event fans out across every account holding the
// instrument.
func (r *Router) dispatch(ctx context.Context, ev *events.Event) error {
	if ev.Type == events.TypeQuote {
		for _, accountID := range r.mirror.AccountsWithSymbol(ev.Quote.InstrumentID) {
			if r.lockouts.IsLocked(accountID) {
				continue
			}
			scoped := *ev
			scoped.AccountID = accountID
			if err := r.dispatchForAccount(ctx, &scoped); err != nil {
				return err
			}
		}
		return nil
	}
	return r.dispatchForAccount(ctx, ev)
}

func (r *Router) dispatchForAccount(ctx context.Context, ev *events.Event) error {
	for _, rule := range r.registry.For(ev.Type) {
		if !rule.Enabled() {
			continue
		}

		breach := r.checkIsolated(rule, ev)
		if breach == nil {
			continue
		}

		logger.WithFields(map[string]interface{}{
			"account": ev.AccountID,
			"rule_id": breach.RuleID,
			"reason":  breach.Reason,
			"action":  breach.Action.Kind,
		}).Warn("Risk rule breached")

		if err := r.executor.Submit(ctx, ev.AccountID, breach); err != nil {
			// Durable lockout write failed. The in-memory gate is closed
			// and the failure audited, but the lockout would not survive a
			// restart, so the event cannot be acknowledged.
			return fmt.Errorf("durable lockout write failed for account %s: %w", ev.AccountID, err)
		}

		// Only one enforcement action per event.
		return nil
	}
	return nil
}

// checkIsolated evaluates one rule, converting a panic into "no breach" for
// that rule only. A misconfigured rule must never blind the whole account.
func (r *Router) checkIsolated(rule rules.Rule, ev *events.Event) (breach *rules.Breach) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithFields(map[string]interface{}{
				"rule_id": rule.ID(),
				"panic":   fmt.Sprintf("%v", rec),
			}).Error("Rule evaluation panicked, treating as no breach")
			breach = nil
		}
	}()
	return rule.Check(ev, r.view)
}

func (r *Router) publish(ev *events.Event) {
	if r.hub == nil {
		return
	}
	r.hub.Publish(broadcast.Message{
		EventType: string(ev.Type),
		AccountID: ev.AccountID,
		Payload:   ev,
	})
}
