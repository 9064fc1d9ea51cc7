package domain

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks
type Repository interface {
	ListByRelay(ctx context.Context, db *gorm.DB, relayID string) ([]PlanChange, error)
	CountByRelay(ctx context.Context, db *gorm.DB, relayID string) (int64, error)
	DeleteByRelay(ctx context.Context, db *gorm.DB, relayID string) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, change *PlanChange) error
	InsertRun(ctx context.Context, db *gorm.DB, run *RebuildRun) error
}
