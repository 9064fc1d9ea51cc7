package repository

import (
	"context"
	"fmt"

	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"github.com/smallbiznis/relayplan/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() planchangedomain.Repository {
	return &repo{}
}

func (r *repo) ListByRelay(ctx context.Context, db *gorm.DB, relayID string) ([]planchangedomain.PlanChange, error) {
	var items []planchangedomain.PlanChange
	err := db.WithContext(ctx).
		Where("relay_id = ?", relayID).
		Order("started_at ASC").
		Order("order_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByRelay(ctx context.Context, db *gorm.DB, relayID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&planchangedomain.PlanChange{}).
		Where("relay_id = ?", relayID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) DeleteByRelay(ctx context.Context, db *gorm.DB, relayID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("relay_id = ?", relayID).
		Delete(&planchangedomain.PlanChange{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, change *planchangedomain.PlanChange) error {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO relay_plan_changes (
			id, relay_id, plan_type, amount_paid, started_at, ended_at, order_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.RelayID,
		change.PlanType,
		change.AmountPaid,
		change.StartedAt,
		change.EndedAt,
		change.OrderID,
		change.CreatedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: order %s", planchangedomain.ErrDuplicatePlanChange, change.OrderID)
		}
		return err
	}
	return nil
}

func (r *repo) InsertRun(ctx context.Context, db *gorm.DB, run *planchangedomain.RebuildRun) error {
	return db.WithContext(ctx).Create(run).Error
}
