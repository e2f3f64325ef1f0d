package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riskenforcer/src/database"
	"riskenforcer/src/model"
)

// TradeHistoryRepository persists executed trades and the per-account session
// marker. The in-memory rolling window must agree with CountSince over the
// same interval.
type TradeHistoryRepository struct {
	db *gorm.DB
}

func NewTradeHistoryRepository() *TradeHistoryRepository {
	return &TradeHistoryRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeHistoryRepository) WithDB(db *gorm.DB) *TradeHistoryRepository {
	return &TradeHistoryRepository{db: db}
}

// Create appends one trade record. Duplicate trade ids are ignored so a
// replayed stream event cannot double-count.
func (r *TradeHistoryRepository) Create(ctx context.Context, trade *model.TradeRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoNothing: true,
		}).
		Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeHistoryRepository",
			"op":       "Create",
			"trade_id": trade.TradeID,
		}).WithError(err).Error("Failed to create trade record")
	}
	return err
}

// CountSince counts an account's trades executed at or after the cutoff.
func (r *TradeHistoryRepository) CountSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRecord{}).
		Where("account_id = ? AND executed_at >= ?", accountID, since).
		Count(&count).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeHistoryRepository",
			"op":      "CountSince",
			"account": accountID,
		}).WithError(err).Error("Failed to count trades")
		return 0, err
	}
	return count, nil
}

// FindSince returns an account's trades executed at or after the cutoff,
// oldest first. Used to rebuild the rolling window after a restart.
func (r *TradeHistoryRepository) FindSince(ctx context.Context, accountID string, since time.Time) ([]model.TradeRecord, error) {
	var trades []model.TradeRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND executed_at >= ?", accountID, since).
		Order("executed_at ASC").
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeHistoryRepository",
			"op":      "FindSince",
			"account": accountID,
		}).WithError(err).Error("Failed to fetch trades")
		return nil, err
	}
	return trades, nil
}

// SessionStart returns the account's session marker.
// Returns (nil, nil) if no session has been recorded.
func (r *TradeHistoryRepository) SessionStart(ctx context.Context, accountID string) (*model.SessionMarker, error) {
	var marker model.SessionMarker
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&marker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &marker, nil
}

// MarkSessionStart moves the account's session marker to startedAt.
func (r *TradeHistoryRepository) MarkSessionStart(ctx context.Context, accountID string, startedAt time.Time) error {
	marker := model.SessionMarker{AccountID: accountID, StartedAt: startedAt}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"started_at", "updated_at"}),
		}).
		Create(&marker).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeHistoryRepository",
			"op":      "MarkSessionStart",
			"account": accountID,
		}).WithError(err).Error("Failed to mark session start")
	}
	return err
}
