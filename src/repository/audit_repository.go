package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"riskenforcer/src/database"
	"riskenforcer/src/model"
)

// AuditRepository appends enforcement records. Rows are append-only: there is
// deliberately no update or delete method on this repository.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *AuditRepository) WithDB(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one enforcement record.
func (r *AuditRepository) Create(ctx context.Context, record *model.EnforcementRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "AuditRepository",
			"op":        "Create",
			"record_id": record.RecordID,
			"account":   record.AccountID,
		}).WithError(err).Error("Failed to append enforcement record")
		return err
	}
	return nil
}

// CreateBatch appends a batch of enforcement records in one insert. Used by
// the persistence writer's flush path.
func (r *AuditRepository) CreateBatch(ctx context.Context, records []model.EnforcementRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Create(&records).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "AuditRepository",
			"op":    "CreateBatch",
			"count": len(records),
		}).WithError(err).Error("Failed to append enforcement records")
		return err
	}
	return nil
}

// AuditSearchOptions filters the enforcement trail.
type AuditSearchOptions struct {
	AccountID string
	RuleID    *string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// Search returns enforcement records newest first, applying the given
// filters and pagination.
func (r *AuditRepository) Search(ctx context.Context, opts AuditSearchOptions) ([]model.EnforcementRecord, error) {
	query := r.db.WithContext(ctx).Model(&model.EnforcementRecord{})

	if opts.AccountID != "" {
		query = query.Where("account_id = ?", opts.AccountID)
	}
	if opts.RuleID != nil {
		query = query.Where("rule_id = ?", *opts.RuleID)
	}
	if opts.Since != nil {
		query = query.Where("executed_at >= ?", *opts.Since)
	}
	if opts.Until != nil {
		query = query.Where("executed_at <= ?", *opts.Until)
	}

	query = query.Order("executed_at DESC, id DESC")

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var records []model.EnforcementRecord
	if err := query.Find(&records).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "AuditRepository",
			"op":      "Search",
			"account": opts.AccountID,
		}).WithError(err).Error("Failed to search enforcement records")
		return nil, err
	}

	return records, nil
}
