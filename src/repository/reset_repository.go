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

// ResetRepository persists per-account reset bookkeeping and the configured
// account list.
type ResetRepository struct {
	db *gorm.DB
}

func NewResetRepository() *ResetRepository {
	return &ResetRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ResetRepository) WithDB(db *gorm.DB) *ResetRepository {
	return &ResetRepository{db: db}
}

// FindState fetches the reset state for one account.
// Returns (nil, nil) if the account has never been reset.
func (r *ResetRepository) FindState(ctx context.Context, accountID string) (*model.AccountResetState, error) {
	var state model.AccountResetState
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// MarkReset records that the account was reset for the given trading day.
func (r *ResetRepository) MarkReset(ctx context.Context, accountID, tradingDay string, at time.Time) error {
	state := model.AccountResetState{
		AccountID:    accountID,
		LastResetDay: tradingDay,
		LastResetAt:  at,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_reset_day", "last_reset_at", "updated_at"}),
		}).
		Create(&state).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ResetRepository",
			"op":      "MarkReset",
			"account": accountID,
			"day":     tradingDay,
		}).WithError(err).Error("Failed to mark reset")
	}
	return err
}

// EnabledAccounts returns every enabled account under supervision.
func (r *ResetRepository) EnabledAccounts(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&accounts).Error
	if err != nil {
		logger.WithField("repo", "ResetRepository").
			WithError(err).Error("Failed to fetch enabled accounts")
		return nil, err
	}
	return accounts, nil
}
