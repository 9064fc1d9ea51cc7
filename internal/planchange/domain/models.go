// Package domain contains the derived plan-change timeline of a relay.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PlanChange is one stored interval of a relay's plan timeline. A nil EndedAt
// marks the ongoing plan.
type PlanChange struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	RelayID    string       `gorm:"type:varchar(64);not null;index"`
	PlanType   string       `gorm:"type:varchar(32);not null"`
	AmountPaid int64        `gorm:"not null"`
	StartedAt  time.Time    `gorm:"not null"`
	EndedAt    *time.Time   `gorm:""`
	OrderID    string       `gorm:"type:varchar(64);not null;uniqueIndex"`
	CreatedAt  time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (PlanChange) TableName() string { return "relay_plan_changes" }

// Interval returns the timeline view of a stored row.
func (p PlanChange) Interval() PlanInterval {
	return PlanInterval{
		PlanType:   p.PlanType,
		AmountPaid: p.AmountPaid,
		StartedAt:  p.StartedAt,
		EndedAt:    p.EndedAt,
		OrderID:    p.OrderID,
	}
}

// PlanInterval is a computed, not yet persisted, timeline entry.
type PlanInterval struct {
	PlanType   string     `json:"plan_type"`
	AmountPaid int64      `json:"amount_paid"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	OrderID    string     `json:"order_id"`
}

func (i PlanInterval) Ongoing() bool {
	return i.EndedAt == nil
}

// Equal compares intervals by value, timestamps by instant.
func (i PlanInterval) Equal(other PlanInterval) bool {
	if i.PlanType != other.PlanType || i.AmountPaid != other.AmountPaid || i.OrderID != other.OrderID {
		return false
	}
	if !i.StartedAt.Equal(other.StartedAt) {
		return false
	}
	if i.EndedAt == nil || other.EndedAt == nil {
		return i.EndedAt == nil && other.EndedAt == nil
	}
	return i.EndedAt.Equal(*other.EndedAt)
}

// RebuildRun is the audit row written once per invocation.
type RebuildRun struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	RunID      string            `gorm:"type:varchar(32);not null;uniqueIndex"`
	RelayID    string            `gorm:"type:varchar(64);not null;default:''"`
	DryRun     bool              `gorm:"not null"`
	Status     RunStatus         `gorm:"type:varchar(32);not null"`
	Processed  int               `gorm:"not null;default:0"`
	Skipped    int               `gorm:"not null;default:0"`
	Errored    int               `gorm:"not null;default:0"`
	Summary    datatypes.JSONMap `gorm:"type:json"`
	StartedAt  time.Time         `gorm:"not null"`
	FinishedAt time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (RebuildRun) TableName() string { return "plan_rebuild_runs" }

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
)
