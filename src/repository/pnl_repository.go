package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"riskenforcer/src/database"
	"riskenforcer/src/model"
)

// PnLRepository persists per-account daily realized P&L. Accumulate is on the
// synchronous write path: a trade event is not acknowledged until its P&L
// delta is durable.
type PnLRepository struct {
	db *gorm.DB
}

func NewPnLRepository() *PnLRepository {
	return &PnLRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PnLRepository) WithDB(db *gorm.DB) *PnLRepository {
	return &PnLRepository{db: db}
}

// Accumulate adds delta to the account's row for tradingDay, creating the row
// if it does not exist. The read-modify-write runs in one transaction so
// concurrent background writers cannot lose a delta.
func (r *PnLRepository) Accumulate(ctx context.Context, accountID, tradingDay string, delta decimal.Decimal) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.DailyPnL
		err := tx.Where("account_id = ? AND trading_day = ?", accountID, tradingDay).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = model.DailyPnL{
				AccountID:  accountID,
				TradingDay: tradingDay,
				Realized:   delta,
				TradeCount: 1,
			}
			return tx.Create(&row).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&row).Updates(map[string]interface{}{
			"realized":    row.Realized.Add(delta),
			"trade_count": row.TradeCount + 1,
		}).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PnLRepository",
			"op":      "Accumulate",
			"account": accountID,
			"day":     tradingDay,
		}).WithError(err).Error("Failed to accumulate daily P&L")
		return err
	}

	return nil
}

// FindDay fetches an account's row for one trading day.
// Returns (nil, nil) if the account has no trades recorded for that day.
func (r *PnLRepository) FindDay(ctx context.Context, accountID, tradingDay string) (*model.DailyPnL, error) {
	var row model.DailyPnL

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND trading_day = ?", accountID, tradingDay).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":    "PnLRepository",
			"op":      "FindDay",
			"account": accountID,
			"day":     tradingDay,
		}).WithError(err).Error("Failed to fetch daily P&L")
		return nil, err
	}

	return &row, nil
}

// OpenDay creates a zeroed row for the new trading day if none exists yet.
// Called by the reset scheduler; previous day rows are left untouched.
func (r *PnLRepository) OpenDay(ctx context.Context, accountID, tradingDay string) error {
	existing, err := r.FindDay(ctx, accountID, tradingDay)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	row := model.DailyPnL{
		AccountID:  accountID,
		TradingDay: tradingDay,
		Realized:   decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PnLRepository",
			"op":      "OpenDay",
			"account": accountID,
			"day":     tradingDay,
		}).WithError(err).Error("Failed to open new P&L day")
		return err
	}

	return nil
}
