package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNoOrderTypes = errors.New("no_order_types")
	ErrInvalidRelay = errors.New("invalid_relay")
)

// Repository reads the order ledger. Qualifying orders are paid, carry a
// paid_at timestamp and have a recognized type; they are returned sorted by
// paid_at then id.
type Repository interface {
	RelayExists(ctx context.Context, db *gorm.DB, relayID string) (bool, error)
	ListQualifyingOrders(ctx context.Context, db *gorm.DB, relayID string, types OrderTypes) ([]Order, error)
	ListRelayIDsWithQualifyingOrders(ctx context.Context, db *gorm.DB, types OrderTypes) ([]string, error)
}
