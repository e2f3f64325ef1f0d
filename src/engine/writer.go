package engine

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/model"
	"riskenforcer/src/repository"
)

// mirrorWrite is one pending mirror mutation.
type mirrorWrite struct {
	position *model.MirroredPosition
	order    *model.MirroredOrder
	removed  bool
}

// Writer is the batched persistence writer for the asynchronous durability
// class: mirror snapshots, trade history, and the enforcement audit trail.
// A crash loses at most one flush interval of these, all recoverable from
// the venue on reconnect. It implements router.Writer and enforce.AuditSink.
type Writer struct {
	mu      sync.Mutex
	mirror  []mirrorWrite
	trades  []model.TradeRecord
	audit   []model.EnforcementRecord
	trigger chan struct{}

	mirrorRepo *repository.MirrorRepository
	tradeRepo  *repository.TradeHistoryRepository
	auditRepo  *repository.AuditRepository

	flushInterval  time.Duration
	flushThreshold int
}

func NewWriter(cfg Config, mirrorRepo *repository.MirrorRepository, tradeRepo *repository.TradeHistoryRepository, auditRepo *repository.AuditRepository) *Writer {
	return &Writer{
		trigger:        make(chan struct{}, 1),
		mirrorRepo:     mirrorRepo,
		tradeRepo:      tradeRepo,
		auditRepo:      auditRepo,
		flushInterval:  cfg.FlushInterval,
		flushThreshold: cfg.FlushThreshold,
	}
}

func (w *Writer) EnqueuePosition(pos model.MirroredPosition, removed bool) {
	w.mu.Lock()
	w.mirror = append(w.mirror, mirrorWrite{position: &pos, removed: removed})
	w.nudgeLocked()
	w.mu.Unlock()
}

func (w *Writer) EnqueueOrder(order model.MirroredOrder, removed bool) {
	w.mu.Lock()
	w.mirror = append(w.mirror, mirrorWrite{order: &order, removed: removed})
	w.nudgeLocked()
	w.mu.Unlock()
}

func (w *Writer) EnqueueTrade(trade model.TradeRecord) {
	w.mu.Lock()
	w.trades = append(w.trades, trade)
	w.nudgeLocked()
	w.mu.Unlock()
}

// Append implements enforce.AuditSink.
func (w *Writer) Append(record model.EnforcementRecord) {
	w.mu.Lock()
	w.audit = append(w.audit, record)
	w.nudgeLocked()
	w.mu.Unlock()
}

// nudgeLocked triggers an early flush once the queue crosses the threshold.
// Caller holds the lock.
func (w *Writer) nudgeLocked() {
	if len(w.mirror)+len(w.trades)+len(w.audit) < w.flushThreshold {
		return
	}
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run flushes on the interval, on a queue-size trigger, and one final time
// on shutdown.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Flush(ctx)
		case <-w.trigger:
			w.Flush(ctx)
		case <-ctx.Done():
			w.Flush(context.Background())
			return
		}
	}
}

// Flush drains the queues and writes everything out. Failed writes are
// logged and dropped: this durability class is recoverable from the venue,
// and blocking the writer on a dead database would only grow the queue.
func (w *Writer) Flush(ctx context.Context) {
	w.mu.Lock()
	mirror := w.mirror
	trades := w.trades
	audit := w.audit
	w.mirror = nil
	w.trades = nil
	w.audit = nil
	w.mu.Unlock()

	if len(mirror) == 0 && len(trades) == 0 && len(audit) == 0 {
		return
	}

	for _, mw := range mirror {
		var err error
		switch {
		case mw.position != nil && mw.removed:
			err = w.mirrorRepo.DeletePosition(ctx, mw.position.PositionID)
		case mw.position != nil:
			err = w.mirrorRepo.UpsertPosition(ctx, mw.position)
		case mw.order != nil && mw.removed:
			err = w.mirrorRepo.DeleteOrder(ctx, mw.order.OrderID)
		case mw.order != nil:
			err = w.mirrorRepo.UpsertOrder(ctx, mw.order)
		}
		if err != nil {
			logger.WithError(err).Warn("Mirror flush write failed")
		}
	}

	for i := range trades {
		if err := w.tradeRepo.Create(ctx, &trades[i]); err != nil {
			logger.WithError(err).Warn("Trade history flush write failed")
		}
	}

	if err := w.auditRepo.CreateBatch(ctx, audit); err != nil {
		logger.WithError(err).Warn("Audit flush write failed")
	}

	logger.WithFields(map[string]interface{}{
		"mirror": len(mirror),
		"trades": len(trades),
		"audit":  len(audit),
	}).Debug("Persistence batch flushed")
}
