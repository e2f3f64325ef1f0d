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

// ContractRepository persists fetched contract metadata so restarts do not
// re-fetch tick geometry for instruments already seen.
type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository() *ContractRepository {
	return &ContractRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ContractRepository) WithDB(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Upsert stores contract metadata for an instrument.
func (r *ContractRepository) Upsert(ctx context.Context, meta *model.ContractMeta) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instrument_id"}},
			DoNothing: true,
		}).
		Create(meta).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "ContractRepository",
			"op":         "Upsert",
			"instrument": meta.InstrumentID,
		}).WithError(err).Error("Failed to upsert contract meta")
	}
	return err
}

// FindByInstrument fetches metadata for one instrument.
// Returns (nil, nil) if the instrument has not been cached yet.
func (r *ContractRepository) FindByInstrument(ctx context.Context, instrumentID string) (*model.ContractMeta, error) {
	var meta model.ContractMeta
	err := r.db.WithContext(ctx).
		Where("instrument_id = ?", instrumentID).
		First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// LoadAll returns every cached contract, used to warm the in-memory cache at
// startup.
func (r *ContractRepository) LoadAll(ctx context.Context) ([]model.ContractMeta, error) {
	var metas []model.ContractMeta
	if err := r.db.WithContext(ctx).Find(&metas).Error; err != nil {
		logger.WithField("repo", "ContractRepository").
			WithError(err).Error("Failed to load contract metas")
		return nil, err
	}
	return metas, nil
}
