package reset

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/lockout"
	"riskenforcer/src/model"
	"riskenforcer/src/state"
)

// PnLStore is the durable side of daily P&L. Implemented by
// repository.PnLRepository.
type PnLStore interface {
	OpenDay(ctx context.Context, accountID, tradingDay string) error
}

// SessionStore moves the durable session marker. Implemented by
// repository.TradeHistoryRepository.
type SessionStore interface {
	MarkSessionStart(ctx context.Context, accountID string, startedAt time.Time) error
}

// StateStore tracks which trading day each account was last reset for.
// Implemented by repository.ResetRepository.
type StateStore interface {
	FindState(ctx context.Context, accountID string) (*model.AccountResetState, error)
	MarkReset(ctx context.Context, accountID, tradingDay string, at time.Time) error
	EnabledAccounts(ctx context.Context) ([]model.Account, error)
}

// Scheduler performs the daily cutover: zero P&L for the new day, reset the
// session trade window, and clear daily-limit lockouts. Non-daily lockouts
// (manual holds, auth anomalies) survive a reset.
type Scheduler struct {
	loc       *time.Location
	resetHour int
	resetMin  int

	pnl      *state.PnLTracker
	trades   *state.TradeWindow
	lockouts *lockout.Manager

	pnlStore     PnLStore
	sessionStore SessionStore
	stateStore   StateStore

	clock func() time.Time
}

func NewScheduler(cfg Config, pnl *state.PnLTracker, trades *state.TradeWindow, lockouts *lockout.Manager, pnlStore PnLStore, sessionStore SessionStore, stateStore StateStore) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.ResetTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reset timezone %q: %w", cfg.ResetTimezone, err)
	}

	parts := strings.SplitN(cfg.ResetTime, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid reset time %q, want HH:MM", cfg.ResetTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid reset hour in %q", cfg.ResetTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid reset minute in %q", cfg.ResetTime)
	}

	return &Scheduler{
		loc:          loc,
		resetHour:    hour,
		resetMin:     minute,
		pnl:          pnl,
		trades:       trades,
		lockouts:     lockouts,
		pnlStore:     pnlStore,
		sessionStore: sessionStore,
		stateStore:   stateStore,
		clock:        time.Now,
	}, nil
}

// WithClock overrides the time source. Useful for tests.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// TradingDay labels the session an instant belongs to. An instant past the
// reset cutover already belongs to the next calendar day's session.
func (s *Scheduler) TradingDay(t time.Time) string {
	local := t.In(s.loc)
	cutover := time.Date(local.Year(), local.Month(), local.Day(), s.resetHour, s.resetMin, 0, 0, s.loc)
	if !local.Before(cutover) {
		local = local.AddDate(0, 0, 1)
	}
	return local.Format("2006-01-02")
}

// NextReset returns the next cutover instant strictly after t, skipping
// non-trading days. A lockout "until next reset" therefore survives weekends
// and holidays.
func (s *Scheduler) NextReset(t time.Time) time.Time {
	local := t.In(s.loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), s.resetHour, s.resetMin, 0, 0, s.loc)
	for !candidate.After(local) || !IsTradingDay(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// PerformReset runs the cutover for one account.
func (s *Scheduler) PerformReset(ctx context.Context, accountID string) error {
	now := s.clock()
	day := s.TradingDay(now)

	s.pnl.Reset(accountID, day)
	if err := s.pnlStore.OpenDay(ctx, accountID, day); err != nil {
		return fmt.Errorf("failed to open P&L day for %s: %w", accountID, err)
	}

	s.trades.ResetSession(accountID, now)
	if err := s.sessionStore.MarkSessionStart(ctx, accountID, now); err != nil {
		return fmt.Errorf("failed to mark session start for %s: %w", accountID, err)
	}

	cleared, err := s.lockouts.ClearIfReason(ctx, accountID, model.LockoutReasonDailyLimit)
	if err != nil {
		return fmt.Errorf("failed to clear daily lockout for %s: %w", accountID, err)
	}

	if err := s.stateStore.MarkReset(ctx, accountID, day, now); err != nil {
		return fmt.Errorf("failed to mark reset for %s: %w", accountID, err)
	}

	logger.WithFields(map[string]interface{}{
		"account":         accountID,
		"trading_day":     day,
		"lockout_cleared": cleared,
	}).Info("Daily reset performed")

	return nil
}

// Sweep checks every enabled account and resets those whose last reset
// precedes the current trading day. Called from the 10-second background
// sweep. On a non-trading day nothing is scheduled, but an already pending
// reset carried over from downtime still replays via ReplayMissed.
func (s *Scheduler) Sweep(ctx context.Context) error {
	now := s.clock()
	if !IsTradingDay(now.In(s.loc)) {
		return nil
	}
	return s.resetStale(ctx, now)
}

// ReplayMissed runs at startup and replays any reset missed while the
// process was down, regardless of the calendar.
func (s *Scheduler) ReplayMissed(ctx context.Context) error {
	return s.resetStale(ctx, s.clock())
}

func (s *Scheduler) resetStale(ctx context.Context, now time.Time) error {
	accounts, err := s.stateStore.EnabledAccounts(ctx)
	if err != nil {
		return err
	}

	day := s.TradingDay(now)
	for _, account := range accounts {
		st, err := s.stateStore.FindState(ctx, account.AccountID)
		if err != nil {
			return err
		}
		if st != nil && st.LastResetDay >= day {
			continue
		}
		if err := s.PerformReset(ctx, account.AccountID); err != nil {
			return err
		}
	}
	return nil
}
