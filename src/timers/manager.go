package timers

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Timer is one pending countdown. Timers are deliberately not persisted: a
// restart cancels every outstanding cooldown and grace period, which is the
// conservative default since a stale timer firing late could wrongly grant
// or revoke access.
type Timer struct {
	Name      string
	AccountID string
	StartedAt time.Time
	ExpiresAt time.Time
	OnExpire  func()
}

type timerKey struct {
	name    string
	account string
}

// Manager holds countdown timers fired by the periodic Tick. Expiry is a
// plain data check, not a registered callback from arbitrary contexts; the
// 1-second sweep is the only caller of Tick.
type Manager struct {
	mu     sync.Mutex
	timers map[timerKey]Timer
	clock  func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		timers: make(map[timerKey]Timer),
		clock:  time.Now,
	}
}

// WithClock overrides the time source. Useful for tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// Start arms a timer. Restarting an existing (name, account) pair replaces
// the previous countdown.
func (m *Manager) Start(name, accountID string, duration time.Duration, onExpire func()) {
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[timerKey{name: name, account: accountID}] = Timer{
		Name:      name,
		AccountID: accountID,
		StartedAt: now,
		ExpiresAt: now.Add(duration),
		OnExpire:  onExpire,
	}

	logger.WithFields(map[string]interface{}{
		"timer":    name,
		"account":  accountID,
		"duration": duration,
	}).Debug("Timer started")
}

// Cancel disarms a timer if present.
func (m *Manager) Cancel(name, accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, timerKey{name: name, account: accountID})
}

// Active reports whether a timer is armed and not yet due.
func (m *Manager) Active(name, accountID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[timerKey{name: name, account: accountID}]
	return ok && m.clock().Before(t.ExpiresAt)
}

// Tick fires and removes every timer whose deadline has passed. A fired
// timer is removed before its action runs, so it fires exactly once even if
// the action itself re-enters the manager.
func (m *Manager) Tick(now time.Time) int {
	m.mu.Lock()
	var due []Timer
	for key, t := range m.timers {
		if !now.Before(t.ExpiresAt) {
			due = append(due, t)
			delete(m.timers, key)
		}
	}
	m.mu.Unlock()

	for _, t := range due {
		logger.WithFields(map[string]interface{}{
			"timer":   t.Name,
			"account": t.AccountID,
		}).Info("Timer expired")
		if t.OnExpire != nil {
			t.OnExpire()
		}
	}
	return len(due)
}
