package enforce

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/lockout"
	"riskenforcer/src/model"
	"riskenforcer/src/rules"
	"riskenforcer/src/venue"
)

// AuditSink receives one record per enforcement attempt. The engine's
// persistence writer buffers and flushes them; records are append-only.
type AuditSink interface {
	Append(record model.EnforcementRecord)
}

// Outcome summarizes one executed breach for broadcast and logging.
type Outcome struct {
	AccountID  string
	RuleID     string
	ActionKind string
	Reason     string
	Success    bool
	LockedOut  bool
	Error      string
}

// Executor turns breach decisions into venue side effects. The lockout part
// of an action is applied synchronously on the caller's (event lane)
// goroutine, since restricting trading must be durable before the triggering
// event is acknowledged. Venue calls run off-lane so enforcement latency
// never stalls ingestion; they are bounded-retry and not cancellable once
// started, to avoid leaving an action half-applied.
type Executor struct {
	cfg      Config
	client   venue.Client
	lockouts *lockout.Manager
	audit    AuditSink
	onDone   func(Outcome)

	wg    sync.WaitGroup
	clock func() time.Time
	sleep func(time.Duration)
}

func NewExecutor(cfg Config, client venue.Client, lockouts *lockout.Manager, audit AuditSink, onDone func(Outcome)) *Executor {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Executor{
		cfg:      cfg,
		client:   client,
		lockouts: lockouts,
		audit:    audit,
		onDone:   onDone,
		clock:    time.Now,
		sleep:    time.Sleep,
	}
}

// Submit applies the breach's lockout synchronously, then launches the venue
// side effects in the background. Returns an error only when the durable
// lockout write failed, the one failure the event lane must see.
func (e *Executor) Submit(ctx context.Context, accountID string, breach *rules.Breach) error {
	lockedOut := false
	if spec := breach.Action.Lockout; spec != nil {
		if err := e.lockouts.Set(ctx, accountID, spec.Reason, breach.RuleID, spec.Until); err != nil {
			// The in-memory gate is already closed; surface the durable
			// failure so the engine can treat it as fatal.
			e.record(accountID, breach, model.ActionSetLockout, 1, 0, err)
			return err
		}
		lockedOut = true
		e.record(accountID, breach, model.ActionSetLockout, 1, 0, nil)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// Deliberately detached from the event's context: a started
		// enforcement runs to completion.
		outcome := e.executeVenueCalls(context.Background(), accountID, breach)
		outcome.LockedOut = lockedOut
		if e.onDone != nil {
			e.onDone(outcome)
		}
	}()
	return nil
}

// Wait blocks until every in-flight enforcement has finished. Used on
// shutdown and by tests.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) executeVenueCalls(ctx context.Context, accountID string, breach *rules.Breach) Outcome {
	outcome := Outcome{
		AccountID:  accountID,
		RuleID:     breach.RuleID,
		ActionKind: breach.Action.Kind,
		Reason:     breach.Reason,
	}

	call := e.venueCall(breach.Action)
	if call == nil {
		// Lockout-only action: nothing to send to the venue.
		outcome.Success = true
		return outcome
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryAttempts; attempt++ {
		start := e.clock()
		_, err := call(ctx, accountID)
		elapsed := e.clock().Sub(start)

		e.record(accountID, breach, breach.Action.Kind, attempt, elapsed, err)

		if err == nil {
			outcome.Success = true
			return outcome
		}
		lastErr = err

		logger.WithFields(map[string]interface{}{
			"account": accountID,
			"rule_id": breach.RuleID,
			"action":  breach.Action.Kind,
			"attempt": attempt,
		}).WithError(err).Warn("Enforcement attempt failed")

		if attempt < e.cfg.RetryAttempts {
			e.sleep(e.cfg.RetryBackoff)
		}
	}

	// All retries exhausted. The lockout, if any, is already in place, so
	// the account cannot keep trading even though the venue call failed.
	outcome.Error = lastErr.Error()
	logger.WithFields(map[string]interface{}{
		"account": accountID,
		"rule_id": breach.RuleID,
		"action":  breach.Action.Kind,
	}).WithError(lastErr).Error("Enforcement failed after all retries")

	return outcome
}

// venueCall maps an action kind to the venue command it requires. Nil means
// the action has no venue side effect.
func (e *Executor) venueCall(action rules.Action) func(ctx context.Context, accountID string) (venue.CommandResult, error) {
	switch action.Kind {
	case model.ActionClosePosition:
		return func(ctx context.Context, accountID string) (venue.CommandResult, error) {
			return e.client.ClosePosition(ctx, accountID, action.Symbol)
		}
	case model.ActionCloseAll:
		return func(ctx context.Context, accountID string) (venue.CommandResult, error) {
			if res, err := e.client.CloseAll(ctx, accountID); err != nil {
				return res, err
			}
			return e.client.CancelAll(ctx, accountID)
		}
	case model.ActionCancelOrder:
		return func(ctx context.Context, accountID string) (venue.CommandResult, error) {
			return e.client.CancelOrder(ctx, accountID, action.OrderID)
		}
	case model.ActionCancelAll:
		return func(ctx context.Context, accountID string) (venue.CommandResult, error) {
			return e.client.CancelAll(ctx, accountID)
		}
	case model.ActionPlaceProtective:
		return func(ctx context.Context, accountID string) (venue.CommandResult, error) {
			return e.client.PlaceProtectiveOrder(ctx, accountID, action.Symbol, action.Side, action.Size, action.StopPrice)
		}
	}
	return nil
}

// record appends one audit row for a single attempt.
func (e *Executor) record(accountID string, breach *rules.Breach, kind string, attempt int, elapsed time.Duration, attemptErr error) {
	detail, _ := json.Marshal(map[string]interface{}{
		"symbol":     breach.Action.Symbol,
		"order_id":   breach.Action.OrderID,
		"stop_price": breach.Action.StopPrice,
	})

	rec := model.EnforcementRecord{
		RecordID:   uuid.NewString(),
		AccountID:  accountID,
		RuleID:     breach.RuleID,
		ActionKind: kind,
		Reason:     breach.Reason,
		Success:    attemptErr == nil,
		Attempt:    attempt,
		DurationMs: elapsed.Milliseconds(),
		Detail:     string(detail),
		ExecutedAt: e.clock(),
	}
	if attemptErr != nil {
		msg := attemptErr.Error()
		rec.Error = &msg
	}
	e.audit.Append(rec)
}
