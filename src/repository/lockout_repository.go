package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riskenforcer/src/database"
	"riskenforcer/src/model"
)

// LockoutRepository persists the lockout gate. Writes here are synchronous
// with event processing: the lockout manager does not acknowledge a set or
// clear until the row is durable.
type LockoutRepository struct {
	db *gorm.DB
}

func NewLockoutRepository() *LockoutRepository {
	return &LockoutRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *LockoutRepository) WithDB(db *gorm.DB) *LockoutRepository {
	return &LockoutRepository{db: db}
}

// Upsert writes the lockout row for an account, replacing any previous state.
func (r *LockoutRepository) Upsert(ctx context.Context, lockout *model.Lockout) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active", "reason", "rule_id", "locked_at", "locked_until", "updated_at"}),
		}).
		Create(lockout).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "LockoutRepository",
			"op":      "Upsert",
			"account": lockout.AccountID,
		}).WithError(err).Error("Failed to upsert lockout")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "LockoutRepository",
		"op":      "Upsert",
		"account": lockout.AccountID,
		"active":  lockout.Active,
		"rule_id": lockout.RuleID,
	}).Info("Lockout state persisted")

	return nil
}

// FindByAccount fetches the lockout row for one account.
// Returns (nil, nil) if no row exists.
func (r *LockoutRepository) FindByAccount(ctx context.Context, accountID string) (*model.Lockout, error) {
	var lockout model.Lockout

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&lockout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":    "LockoutRepository",
			"op":      "FindByAccount",
			"account": accountID,
		}).WithError(err).Error("Failed to fetch lockout")
		return nil, err
	}

	return &lockout, nil
}

// FindActive returns every account currently locked out. Used on startup to
// rebuild the in-memory gate.
func (r *LockoutRepository) FindActive(ctx context.Context) ([]model.Lockout, error) {
	var lockouts []model.Lockout

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Find(&lockouts).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "LockoutRepository",
			"op":   "FindActive",
		}).WithError(err).Error("Failed to fetch active lockouts")
		return nil, err
	}

	return lockouts, nil
}
