package enforce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"riskenforcer/src/lockout"
	"riskenforcer/src/model"
	"riskenforcer/src/rules"
	"riskenforcer/src/venue"
)

// fakeVenue counts calls and fails the first failFirst of each method.
type fakeVenue struct {
	mu        sync.Mutex
	calls     map[string]int
	failFirst int
}

func newFakeVenue(failFirst int) *fakeVenue {
	return &fakeVenue{calls: make(map[string]int), failFirst: failFirst}
}

func (f *fakeVenue) invoke(method string) (venue.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.calls[method] <= f.failFirst {
		return venue.CommandResult{}, errors.New("venue unavailable")
	}
	return venue.CommandResult{OK: true}, nil
}

func (f *fakeVenue) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeVenue) ClosePosition(_ context.Context, _, _ string) (venue.CommandResult, error) {
	return f.invoke("ClosePosition")
}
func (f *fakeVenue) CloseAll(_ context.Context, _ string) (venue.CommandResult, error) {
	return f.invoke("CloseAll")
}
func (f *fakeVenue) CancelOrder(_ context.Context, _, _ string) (venue.CommandResult, error) {
	return f.invoke("CancelOrder")
}
func (f *fakeVenue) CancelAll(_ context.Context, _ string) (venue.CommandResult, error) {
	return f.invoke("CancelAll")
}
func (f *fakeVenue) PlaceProtectiveOrder(_ context.Context, _, _, _ string, _ int, _ float64) (venue.CommandResult, error) {
	return f.invoke("PlaceProtectiveOrder")
}
func (f *fakeVenue) ListPositions(_ context.Context, _ string) ([]model.MirroredPosition, error) {
	return nil, nil
}
func (f *fakeVenue) ListOrders(_ context.Context, _ string) ([]model.MirroredOrder, error) {
	return nil, nil
}
func (f *fakeVenue) ContractDetails(_ context.Context, _ string) (*model.ContractMeta, error) {
	return nil, nil
}

// memAudit collects records.
type memAudit struct {
	mu      sync.Mutex
	records []model.EnforcementRecord
}

func (a *memAudit) Append(record model.EnforcementRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

// memLockoutStore is a lockout store whose writes can be failed.
type memLockoutStore struct {
	rows map[string]model.Lockout
	fail error
}

func (s *memLockoutStore) Upsert(_ context.Context, row *model.Lockout) error {
	if s.fail != nil {
		return s.fail
	}
	if s.rows == nil {
		s.rows = make(map[string]model.Lockout)
	}
	s.rows[row.AccountID] = *row
	return nil
}

func (s *memLockoutStore) FindActive(_ context.Context) ([]model.Lockout, error) {
	return nil, nil
}

func newTestExecutor(client venue.Client, store lockout.Store, audit AuditSink, onDone func(Outcome)) *Executor {
	e := NewExecutor(Config{RetryAttempts: 3, RetryBackoff: time.Millisecond}, client, lockout.NewManager(store), audit, onDone)
	e.sleep = func(time.Duration) {}
	return e
}

func closeAllBreach(lock *rules.LockoutSpec) *rules.Breach {
	return &rules.Breach{
		RuleID: "daily_realized_loss",
		Reason: "daily realized P&L -500.01 below limit -500.00",
		Action: rules.Action{Kind: model.ActionCloseAll, Lockout: lock},
	}
}

func TestSubmitAppliesLockoutBeforeVenueCalls(t *testing.T) {
	client := newFakeVenue(0)
	audit := &memAudit{}
	var outcome Outcome
	done := make(chan struct{})

	exec := newTestExecutor(client, &memLockoutStore{}, audit, func(o Outcome) {
		outcome = o
		close(done)
	})

	until := time.Date(2025, time.June, 2, 21, 0, 0, 0, time.UTC)
	err := exec.Submit(context.Background(), "acct-1", closeAllBreach(&rules.LockoutSpec{Reason: model.LockoutReasonDailyLimit, Until: &until}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The lockout is visible before the venue side effects finish.
	if !exec.lockouts.IsLocked("acct-1") {
		t.Fatalf("expected account locked immediately after Submit")
	}

	<-done
	exec.Wait()

	if !outcome.Success || !outcome.LockedOut {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	// close_all sends both a flatten and a cancel-all.
	if client.count("CloseAll") != 1 || client.count("CancelAll") != 1 {
		t.Fatalf("expected CloseAll and CancelAll once each, got %+v", client.calls)
	}
}

func TestSubmitRetriesVenueFailures(t *testing.T) {
	client := newFakeVenue(1) // first attempt fails, second succeeds
	audit := &memAudit{}
	done := make(chan Outcome, 1)

	exec := newTestExecutor(client, &memLockoutStore{}, audit, func(o Outcome) { done <- o })

	if err := exec.Submit(context.Background(), "acct-1", closeAllBreach(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome := <-done
	exec.Wait()

	if !outcome.Success {
		t.Fatalf("expected success after retry, got %+v", outcome)
	}
	if client.count("CloseAll") != 2 {
		t.Fatalf("expected 2 CloseAll attempts, got %d", client.count("CloseAll"))
	}

	// One audit row per attempt: first failed, second succeeded.
	audit.mu.Lock()
	defer audit.mu.Unlock()
	if len(audit.records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(audit.records))
	}
	if audit.records[0].Success || audit.records[0].Error == nil {
		t.Fatalf("first attempt must be recorded as failed: %+v", audit.records[0])
	}
	if !audit.records[1].Success {
		t.Fatalf("second attempt must be recorded as success: %+v", audit.records[1])
	}
}

func TestLockoutHoldsWhenVenueStaysDown(t *testing.T) {
	client := newFakeVenue(100) // never succeeds
	audit := &memAudit{}
	done := make(chan Outcome, 1)

	exec := newTestExecutor(client, &memLockoutStore{}, audit, func(o Outcome) { done <- o })

	if err := exec.Submit(context.Background(), "acct-1", closeAllBreach(&rules.LockoutSpec{Reason: model.LockoutReasonDailyLimit})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome := <-done
	exec.Wait()

	if outcome.Success {
		t.Fatalf("expected failure when every attempt fails")
	}
	if outcome.Error == "" {
		t.Fatalf("expected error message in outcome")
	}
	// The account must stay locked even though the flatten never landed.
	if !outcome.LockedOut || !exec.lockouts.IsLocked("acct-1") {
		t.Fatalf("lockout must hold regardless of venue failures")
	}
	if client.count("CloseAll") != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.count("CloseAll"))
	}
}

func TestSubmitSurfacesDurableLockoutFailure(t *testing.T) {
	client := newFakeVenue(0)
	store := &memLockoutStore{fail: errors.New("db down")}
	exec := newTestExecutor(client, store, &memAudit{}, nil)

	err := exec.Submit(context.Background(), "acct-1", closeAllBreach(&rules.LockoutSpec{Reason: model.LockoutReasonDailyLimit}))
	if err == nil {
		t.Fatalf("expected durable lockout failure to propagate")
	}
	// Fail closed: in-memory gate is shut despite the failed write.
	if !exec.lockouts.IsLocked("acct-1") {
		t.Fatalf("expected in-memory lockout despite durable failure")
	}
	exec.Wait()
	// No venue calls were launched for the failed submit.
	if client.count("CloseAll") != 0 {
		t.Fatalf("expected no venue calls, got %+v", client.calls)
	}
}

func TestCancelOrderAction(t *testing.T) {
	client := newFakeVenue(0)
	done := make(chan Outcome, 1)
	exec := newTestExecutor(client, &memLockoutStore{}, &memAudit{}, func(o Outcome) { done <- o })

	breach := &rules.Breach{
		RuleID: "blocked_symbols",
		Reason: "symbol CLU5 is blocked",
		Action: rules.Action{Kind: model.ActionCancelOrder, OrderID: "o-1"},
	}
	if err := exec.Submit(context.Background(), "acct-1", breach); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome := <-done
	exec.Wait()

	if !outcome.Success || outcome.LockedOut {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if client.count("CancelOrder") != 1 {
		t.Fatalf("expected 1 CancelOrder, got %+v", client.calls)
	}
	if exec.lockouts.IsLocked("acct-1") {
		t.Fatalf("cancel without lockout spec must not lock the account")
	}
}
