package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riskenforcer/src/database"
	"riskenforcer/src/model"
)

// MirrorRepository persists periodic snapshots of the position/order mirror.
// Writes are batched by the engine's persistence writer; the venue remains
// the source of truth, so losing one batch interval is acceptable.
type MirrorRepository struct {
	db *gorm.DB
}

func NewMirrorRepository() *MirrorRepository {
	return &MirrorRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *MirrorRepository) WithDB(db *gorm.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

// UpsertPosition writes one position keyed by its venue position id.
func (r *MirrorRepository) UpsertPosition(ctx context.Context, pos *model.MirroredPosition) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "position_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_id", "symbol", "direction", "size", "entry_price", "opened_at", "updated_at"}),
		}).
		Create(pos).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "MirrorRepository",
			"op":          "UpsertPosition",
			"position_id": pos.PositionID,
		}).WithError(err).Error("Failed to upsert mirrored position")
	}
	return err
}

// DeletePosition removes a position row by venue position id.
func (r *MirrorRepository) DeletePosition(ctx context.Context, positionID string) error {
	return r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Delete(&model.MirroredPosition{}).Error
}

// UpsertOrder writes one working order keyed by its venue order id.
func (r *MirrorRepository) UpsertOrder(ctx context.Context, order *model.MirroredOrder) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_id", "symbol", "kind", "side", "size", "limit_price", "stop_price", "state", "placed_at", "updated_at"}),
		}).
		Create(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "MirrorRepository",
			"op":       "UpsertOrder",
			"order_id": order.OrderID,
		}).WithError(err).Error("Failed to upsert mirrored order")
	}
	return err
}

// DeleteOrder removes an order row by venue order id.
func (r *MirrorRepository) DeleteOrder(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&model.MirroredOrder{}).Error
}

// LoadPositions returns every persisted position, used to seed the in-memory
// mirror before the first reconciliation after a restart.
func (r *MirrorRepository) LoadPositions(ctx context.Context) ([]model.MirroredPosition, error) {
	var positions []model.MirroredPosition
	if err := r.db.WithContext(ctx).Find(&positions).Error; err != nil {
		logger.WithField("repo", "MirrorRepository").
			WithError(err).Error("Failed to load mirrored positions")
		return nil, err
	}
	return positions, nil
}

// LoadOrders returns every persisted working order.
func (r *MirrorRepository) LoadOrders(ctx context.Context) ([]model.MirroredOrder, error) {
	var orders []model.MirroredOrder
	if err := r.db.WithContext(ctx).Find(&orders).Error; err != nil {
		logger.WithField("repo", "MirrorRepository").
			WithError(err).Error("Failed to load mirrored orders")
		return nil, err
	}
	return orders, nil
}

// ReplaceAccount swaps all rows of one account for the given reconciled
// snapshot in a single transaction.
func (r *MirrorRepository) ReplaceAccount(ctx context.Context, accountID string, positions []model.MirroredPosition, orders []model.MirroredOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&model.MirroredPosition{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&model.MirroredOrder{}).Error; err != nil {
			return err
		}
		if len(positions) > 0 {
			if err := tx.Create(&positions).Error; err != nil {
				return err
			}
		}
		if len(orders) > 0 {
			if err := tx.Create(&orders).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
