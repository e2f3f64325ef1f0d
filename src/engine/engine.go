package engine

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
	"riskenforcer/src/repository"
	"riskenforcer/src/reset"
	"riskenforcer/src/router"
	"riskenforcer/src/rules"
	"riskenforcer/src/state"
	"riskenforcer/src/timers"
	"riskenforcer/src/venue"
)

// Engine wires the full pipeline together: venue stream in, single event
// lane through the router, venue commands and broadcast fan-out back out.
type Engine struct {
	cfg Config

	mirror    *state.Mirror
	pnl       *state.PnLTracker
	quotes    *state.QuoteCache
	contracts *state.ContractCache
	trades    *state.TradeWindow

	lockouts  *lockout.Manager
	timerMgr  *timers.Manager
	scheduler *reset.Scheduler
	executor  *enforce.Executor
	router    *router.Router
	writer    *Writer
	hub       *broadcast.Hub

	client venue.Client
	stream *venue.Stream

	mirrorRepo   *repository.MirrorRepository
	pnlRepo      *repository.PnLRepository
	tradeRepo    *repository.TradeHistoryRepository
	contractRepo *repository.ContractRepository
	resetRepo    *repository.ResetRepository

	lane chan *events.Event
}

// New assembles the engine from per-package configuration. The repositories
// bind to database.MainDB, which must be initialized first.
func New(cfg Config, client venue.Client, stream *venue.Stream, hub *broadcast.Hub) (*Engine, error) {
	mirrorRepo := repository.NewMirrorRepository()
	pnlRepo := repository.NewPnLRepository()
	tradeRepo := repository.NewTradeHistoryRepository()
	contractRepo := repository.NewContractRepository()
	auditRepo := repository.NewAuditRepository()
	resetRepo := repository.NewResetRepository()

	mirror := state.NewMirror()
	pnl := state.NewPnLTracker()
	quotes := state.NewQuoteCache(cfg.QuoteMaxAge)
	contracts := state.NewContractCache(client, contractRepo)
	trades := state.NewTradeWindow(cfg.TradeWindow)

	lockouts := lockout.NewManager(&retryingLockoutStore{
		repo:     repository.NewLockoutRepository(),
		attempts: cfg.SyncWriteRetries,
		backoff:  cfg.SyncWriteBackoff,
	})

	scheduler, err := reset.NewScheduler(reset.GetConfig(), pnl, trades, lockouts, pnlRepo, tradeRepo, resetRepo)
	if err != nil {
		return nil, err
	}

	ruleCfg := rules.GetConfig()
	registry, err := rules.NewRegistry(ruleCfg)
	if err != nil {
		return nil, err
	}

	writer := NewWriter(cfg, mirrorRepo, tradeRepo, auditRepo)

	e := &Engine{
		cfg:          cfg,
		mirror:       mirror,
		pnl:          pnl,
		quotes:       quotes,
		contracts:    contracts,
		trades:       trades,
		lockouts:     lockouts,
		scheduler:    scheduler,
		writer:       writer,
		hub:          hub,
		client:       client,
		stream:       stream,
		mirrorRepo:   mirrorRepo,
		pnlRepo:      pnlRepo,
		tradeRepo:    tradeRepo,
		contractRepo: contractRepo,
		resetRepo:    resetRepo,
		lane:         make(chan *events.Event, cfg.EventBuffer),
	}
	e.timerMgr = timers.NewManager()
	e.executor = enforce.NewExecutor(enforce.GetConfig(), client, lockouts, writer, e.publishOutcome)
	e.router = router.New(
		mirror, pnl, quotes, contracts, trades,
		lockouts, e.timerMgr, registry, e.executor, hub, scheduler,
		&retryingPnLStore{repo: pnlRepo, attempts: cfg.SyncWriteRetries, backoff: cfg.SyncWriteBackoff},
		writer,
		ruleCfg.GracePeriod,
	)

	stream.OnEvent = e.ingest
	stream.OnReconnect = e.reconcile
	return e, nil
}

// Recover rebuilds in-memory state from durable storage. Must complete
// before Run; until it does the engine accepts no events, so no account can
// trade past a restored limit.
func (e *Engine) Recover(ctx context.Context) error {
	if err := e.lockouts.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover lockouts: %w", err)
	}

	positions, err := e.mirrorRepo.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mirrored positions: %w", err)
	}
	orders, err := e.mirrorRepo.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mirrored orders: %w", err)
	}
	e.mirror.Seed(positions, orders)

	metas, err := e.contractRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load contract metadata: %w", err)
	}
	e.contracts.Warm(metas)

	accounts, err := e.resetRepo.EnabledAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	now := time.Now()
	day := e.scheduler.TradingDay(now)
	for _, account := range accounts {
		if err := e.recoverAccount(ctx, account.AccountID, day, now); err != nil {
			return err
		}
	}

	if err := e.scheduler.ReplayMissed(ctx); err != nil {
		return fmt.Errorf("failed to replay missed resets: %w", err)
	}

	logger.WithFields(logger.Fields{
		"accounts":  len(accounts),
		"positions": len(positions),
		"orders":    len(orders),
		"contracts": len(metas),
	}).Info("State recovery complete")
	return nil
}

func (e *Engine) recoverAccount(ctx context.Context, accountID, tradingDay string, now time.Time) error {
	record, err := e.pnlRepo.FindDay(ctx, accountID, tradingDay)
	if err != nil {
		return fmt.Errorf("failed to load daily P&L for %s: %w", accountID, err)
	}
	if record != nil {
		e.pnl.Seed(accountID, tradingDay, record.Realized)
	}

	marker, err := e.tradeRepo.SessionStart(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load session marker for %s: %w", accountID, err)
	}
	sessionStart := now
	if marker != nil {
		sessionStart = marker.StartedAt
	}

	since := now.Add(-e.cfg.TradeWindow)
	if sessionStart.Before(since) {
		since = sessionStart
	}
	history, err := e.tradeRepo.FindSince(ctx, accountID, since)
	if err != nil {
		return fmt.Errorf("failed to load trade history for %s: %w", accountID, err)
	}
	seeds := make([]state.TradeSeed, 0, len(history))
	for _, t := range history {
		seeds = append(seeds, state.TradeSeed{Symbol: t.Symbol, PnL: t.PnL, ExecutedAt: t.ExecutedAt})
	}
	e.trades.Seed(accountID, sessionStart, seeds)
	return nil
}

// Run drives the engine until the context is cancelled or a synchronous
// durable write stays failed. On the latter it returns the error instead of
// continuing with corrupted risk state.
func (e *Engine) Run(ctx context.Context) error {
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	go e.writer.Run(streamCtx)
	go e.stream.Run(streamCtx)
	go e.sweepLoop(streamCtx)
	go e.resetLoop(streamCtx)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev := <-e.lane:
			if err := e.router.Route(ctx, ev); err != nil {
				runErr = err
				break loop
			}
		}
	}

	stopStream()
	e.executor.Wait()
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	e.writer.Flush(flushCtx)
	return runErr
}

// ingest runs on the stream reader goroutine. A full lane blocks the reader,
// pushing backpressure to the venue connection rather than dropping events.
func (e *Engine) ingest(ev *events.Event) {
	e.lane <- ev
}

func (e *Engine) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.lockouts.Sweep(ctx, now)
			e.timerMgr.Tick(now)
		}
	}
}

func (e *Engine) resetLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ResetInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.scheduler.Sweep(ctx); err != nil {
				logger.WithError(err).Error("Daily reset sweep failed")
			}
		}
	}
}

func (e *Engine) publishOutcome(o enforce.Outcome) {
	e.hub.Publish(broadcast.Message{
		EventType: "enforcement",
		AccountID: o.AccountID,
		Payload:   o,
		SentAt:    time.Now(),
	})
}

// retryingPnLStore retries the synchronous realized-P&L write a bounded
// number of times before reporting the failure as fatal.
type retryingPnLStore struct {
	repo     *repository.PnLRepository
	attempts int
	backoff  time.Duration
}

func (s *retryingPnLStore) Accumulate(ctx context.Context, accountID, tradingDay string, delta decimal.Decimal) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.repo.Accumulate(ctx, accountID, tradingDay, delta); err == nil {
			return nil
		}
		logger.WithFields(logger.Fields{
			"account": accountID,
			"attempt": attempt,
		}).WithError(err).Warn("Realized P&L write failed")
		if attempt < s.attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff):
			}
		}
	}
	return fmt.Errorf("realized P&L write failed after %d attempts: %w", s.attempts, err)
}

// retryingLockoutStore retries the synchronous lockout write the same way:
// a lockout that is not durable would not survive a restart, so the write
// gets the bounded retries before the failure is surfaced as fatal.
type retryingLockoutStore struct {
	repo     *repository.LockoutRepository
	attempts int
	backoff  time.Duration
}

func (s *retryingLockoutStore) Upsert(ctx context.Context, row *model.Lockout) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.repo.Upsert(ctx, row); err == nil {
			return nil
		}
		logger.WithFields(logger.Fields{
			"account": row.AccountID,
			"attempt": attempt,
		}).WithError(err).Warn("Lockout write failed")
		if attempt < s.attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff):
			}
		}
	}
	return fmt.Errorf("lockout write failed after %d attempts: %w", s.attempts, err)
}

func (s *retryingLockoutStore) FindActive(ctx context.Context) ([]model.Lockout, error) {
	return s.repo.FindActive(ctx)
}
