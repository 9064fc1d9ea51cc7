package repository

import (
	"context"

	orderdomain "github.com/smallbiznis/relayplan/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() orderdomain.Repository {
	return &repo{}
}

func (r *repo) RelayExists(ctx context.Context, db *gorm.DB, relayID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&orderdomain.Relay{}).
		Where("id = ?", relayID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListQualifyingOrders(ctx context.Context, db *gorm.DB, relayID string, types orderdomain.OrderTypes) ([]orderdomain.Order, error) {
	if len(types) == 0 {
		return nil, orderdomain.ErrNoOrderTypes
	}
	var orders []orderdomain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, relay_id, amount, order_type, paid, paid_at, created_at
		 FROM orders
		 WHERE relay_id = ?
		   AND paid = ?
		   AND paid_at IS NOT NULL
		   AND order_type IN ?
		 ORDER BY paid_at ASC, id ASC`,
		relayID,
		true,
		types.Strings(),
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListRelayIDsWithQualifyingOrders(ctx context.Context, db *gorm.DB, types orderdomain.OrderTypes) ([]string, error) {
	if len(types) == 0 {
		return nil, orderdomain.ErrNoOrderTypes
	}
	var relayIDs []string
	err := db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Distinct().
		Where("paid = ? AND paid_at IS NOT NULL AND order_type IN ?", true, types.Strings()).
		Order("relay_id ASC").
		Pluck("relay_id", &relayIDs).Error
	if err != nil {
		return nil, err
	}
	return relayIDs, nil
}
