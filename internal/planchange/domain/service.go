package domain

import (
	"context"
	"errors"
)

type RebuildRequest struct {
	RelayID string
	DryRun  bool
}

type RebuildAllRequest struct {
	DryRun bool
}

type RebuildStatus string

const (
	RebuildStatusApplied  RebuildStatus = "applied"
	RebuildStatusDryRun   RebuildStatus = "dry_run"
	RebuildStatusNotFound RebuildStatus = "not_found"
)

// RebuildReport describes one relay. Existing holds the rows stored before the
// rebuild; Timeline the freshly computed intervals.
type RebuildReport struct {
	RelayID  string         `json:"relay_id"`
	DryRun   bool           `json:"dry_run"`
	Status   RebuildStatus  `json:"status"`
	Deleted  int64          `json:"deleted"`
	Created  int            `json:"created"`
	Changed  bool           `json:"changed"`
	Existing []PlanInterval `json:"existing"`
	Timeline []PlanInterval `json:"timeline"`
}

type RelayError struct {
	RelayID string `json:"relay_id"`
	Error   string `json:"error"`
}

// BatchReport aggregates a run over every eligible relay. Skipped counts relays
// that have orders but no registry entry.
type BatchReport struct {
	DryRun    bool            `json:"dry_run"`
	Total     int             `json:"total"`
	Processed int             `json:"processed"`
	Skipped   int             `json:"skipped"`
	Errored   int             `json:"errored"`
	Changed   int             `json:"changed"`
	Errors    []RelayError    `json:"errors,omitempty"`
	Reports   []RebuildReport `json:"-"`
}

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	Rebuild(ctx context.Context, req RebuildRequest) (RebuildReport, error)
	RebuildAll(ctx context.Context, req RebuildAllRequest) (BatchReport, error)
}

var (
	ErrDuplicatePlanChange = errors.New("duplicate_plan_change")
	ErrVerificationFailed  = errors.New("plan_change_verification_failed")
)
