package lockout

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/model"
)

// Store is the durable side of the lockout gate. Implemented by
// repository.LockoutRepository.
type Store interface {
	Upsert(ctx context.Context, lockout *model.Lockout) error
	FindActive(ctx context.Context) ([]model.Lockout, error)
}

// Status is the read-only lockout view handed to callers.
type Status struct {
	Active      bool
	Reason      string
	RuleID      string
	LockedAt    time.Time
	LockedUntil *time.Time
}

// Manager owns the per-account lockout state machine
// (Unlocked → Locked → Unlocked). Reads are in-memory; Set and Clear write
// through to the store synchronously and do not return until the row is
// durable. The expiry sweep and Set/Clear serialize on one mutex, so a sweep
// can never race a set on the same account.
type Manager struct {
	mu    sync.Mutex
	store Store
	state map[string]Status // key: account id
	clock func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		state: make(map[string]Status),
		clock: time.Now,
	}
}

// WithClock overrides the time source. Useful for tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// Recover rebuilds the in-memory gate from durable state at startup.
func (m *Manager) Recover(ctx context.Context) error {
	rows, err := m.store.FindActive(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.state[row.AccountID] = Status{
			Active:      true,
			Reason:      row.Reason,
			RuleID:      row.RuleID,
			LockedAt:    row.LockedAt,
			LockedUntil: row.LockedUntil,
		}
	}

	logger.WithField("active", len(rows)).Info("Lockout state recovered")
	return nil
}

// Set locks the account. The in-memory gate flips first so the account is
// restricted even if the durable write fails; the write error still
// propagates because losing a lockout across a crash is not acceptable.
func (m *Manager) Set(ctx context.Context, accountID, reason, ruleID string, until *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	m.state[accountID] = Status{
		Active:      true,
		Reason:      reason,
		RuleID:      ruleID,
		LockedAt:    now,
		LockedUntil: until,
	}

	logger.WithFields(map[string]interface{}{
		"account": accountID,
		"reason":  reason,
		"rule_id": ruleID,
		"until":   until,
	}).Warn("Account locked out")

	return m.store.Upsert(ctx, &model.Lockout{
		AccountID:   accountID,
		Active:      true,
		Reason:      reason,
		RuleID:      ruleID,
		LockedAt:    now,
		LockedUntil: until,
	})
}

// Clear unlocks the account and persists the cleared state.
func (m *Manager) Clear(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx, accountID)
}

// ClearIfReason unlocks the account only when the active lockout carries the
// given reason. The daily reset uses this to clear daily-limit lockouts while
// leaving manual holds in place.
func (m *Manager) ClearIfReason(ctx context.Context, accountID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.state[accountID]
	if !ok || !st.Active || st.Reason != reason {
		return false, nil
	}
	if err := m.clearLocked(ctx, accountID); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) clearLocked(ctx context.Context, accountID string) error {
	delete(m.state, accountID)

	logger.WithField("account", accountID).Info("Account lockout cleared")

	return m.store.Upsert(ctx, &model.Lockout{
		AccountID: accountID,
		Active:    false,
	})
}

// IsLocked is the hot-path gate check; in-memory only.
func (m *Manager) IsLocked(accountID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[accountID]
	return ok && st.Active
}

// Current returns the account's lockout status.
func (m *Manager) Current(accountID string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[accountID]
	return st, ok && st.Active
}

// Sweep expires lockouts whose deadline has passed. Called from the 1-second
// background sweep. Returns the accounts unlocked.
func (m *Manager) Sweep(ctx context.Context, now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for accountID, st := range m.state {
		if !st.Active || st.LockedUntil == nil {
			continue
		}
		if now.Before(*st.LockedUntil) {
			continue
		}
		if err := m.clearLocked(ctx, accountID); err != nil {
			// Keep the account locked in memory on a failed durable clear;
			// the next sweep retries.
			m.state[accountID] = st
			logger.WithField("account", accountID).
				WithError(err).Error("Failed to persist lockout expiry")
			continue
		}
		expired = append(expired, accountID)
	}
	return expired
}
