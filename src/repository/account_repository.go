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

// AccountRepository manages the accounts under supervision, including their
// encrypted venue credentials.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *AccountRepository) WithDB(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert creates an account or refreshes its name, credentials and enabled
// flag if it already exists.
func (r *AccountRepository) Upsert(ctx context.Context, account *model.Account) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "api_key_enc", "api_secret_enc", "enabled", "updated_at"}),
		}).
		Create(account).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "AccountRepository",
			"op":      "Upsert",
			"account": account.AccountID,
		}).WithError(err).Error("Failed to upsert account")
	}
	return err
}

// FindByAccountID fetches one account. Returns (nil, nil) when unknown.
func (r *AccountRepository) FindByAccountID(ctx context.Context, accountID string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// SetEnabled flips supervision on or off for an account.
func (r *AccountRepository) SetEnabled(ctx context.Context, accountID string, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Update("enabled", enabled)
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "AccountRepository",
			"op":      "SetEnabled",
			"account": accountID,
		}).WithError(result.Error).Error("Failed to update account")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
