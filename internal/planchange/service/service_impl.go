package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relayplan/internal/clock"
	"github.com/smallbiznis/relayplan/internal/config"
	obscontext "github.com/smallbiznis/relayplan/internal/observability/context"
	obslogger "github.com/smallbiznis/relayplan/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/relayplan/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/relayplan/internal/order/domain"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/smallbiznis/relayplan/internal/planchange"

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	repo      planchangedomain.Repository
	orderRepo orderdomain.Repository

	orderTypes orderdomain.OrderTypes
	throttle   time.Duration

	tracer         trace.Tracer
	metrics        *obsmetrics.Metrics
	rebuildMetrics *obsmetrics.RebuildMetrics
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Repo      planchangedomain.Repository
	OrderRepo orderdomain.Repository
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) planchangedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("planchange.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orderRepo: p.OrderRepo,

		orderTypes: orderdomain.ParseOrderTypes(p.Config.Rebuild.OrderTypes),
		throttle:   p.Config.Rebuild.Throttle,

		tracer:         otel.Tracer(tracerName),
		metrics:        p.Metrics,
		rebuildMetrics: obsmetrics.Rebuild(),
	}
}

// Rebuild implements domain.Service.
func (s *Service) Rebuild(ctx context.Context, req planchangedomain.RebuildRequest) (planchangedomain.RebuildReport, error) {
	relayID := strings.TrimSpace(req.RelayID)
	if relayID == "" {
		return planchangedomain.RebuildReport{}, orderdomain.ErrInvalidRelay
	}

	ctx = obscontext.WithRelayID(ctx, relayID)
	ctx, span := s.tracer.Start(ctx, "planchange.Rebuild", trace.WithAttributes(
		attribute.String("relay.id", relayID),
		attribute.Bool("rebuild.dry_run", req.DryRun),
	))
	defer span.End()

	startedAt := time.Now()
	report, err := s.rebuild(ctx, relayID, req.DryRun)
	s.rebuildMetrics.ObserveRelayDuration(time.Since(startedAt))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebuild failed")
		s.rebuildMetrics.IncRelay(obsmetrics.RebuildOutcomeError)
		s.rebuildMetrics.IncError(err)
		s.metrics.RecordRelayRebuilt(ctx, obsmetrics.RebuildOutcomeError)
		return report, fmt.Errorf("rebuild relay %s: %w", relayID, err)
	}

	outcome := string(report.Status)
	span.SetAttributes(
		attribute.String("rebuild.status", outcome),
		attribute.Bool("rebuild.changed", report.Changed),
		attribute.Int("rebuild.intervals", len(report.Timeline)),
	)
	s.rebuildMetrics.IncRelay(outcome)
	s.metrics.RecordRelayRebuilt(ctx, outcome)
	if report.Changed {
		s.rebuildMetrics.IncDrift()
	}
	if report.Status == planchangedomain.RebuildStatusApplied {
		s.rebuildMetrics.AddRows(obsmetrics.RowsDeleted, report.Deleted)
		s.rebuildMetrics.AddRows(obsmetrics.RowsCreated, int64(report.Created))
	}
	return report, nil
}

func (s *Service) rebuild(ctx context.Context, relayID string, dryRun bool) (planchangedomain.RebuildReport, error) {
	log := obslogger.WithContext(ctx, s.log)
	report := planchangedomain.RebuildReport{
		RelayID: relayID,
		DryRun:  dryRun,
	}

	exists, err := s.orderRepo.RelayExists(ctx, s.db, relayID)
	if err != nil {
		return report, fmt.Errorf("lookup relay: %w", err)
	}
	if !exists {
		log.Warn("relay not found, skipping")
		report.Status = planchangedomain.RebuildStatusNotFound
		return report, nil
	}

	orders, err := s.orderRepo.ListQualifyingOrders(ctx, s.db, relayID, s.orderTypes)
	if err != nil {
		return report, fmt.Errorf("list orders: %w", err)
	}
	existing, err := s.repo.ListByRelay(ctx, s.db, relayID)
	if err != nil {
		return report, fmt.Errorf("list plan changes: %w", err)
	}

	report.Existing = timelineFromRows(existing)
	report.Timeline = ComputeTimeline(orders)
	report.Changed = timelineChanged(report.Existing, report.Timeline)

	if dryRun {
		report.Status = planchangedomain.RebuildStatusDryRun
		log.Debug("dry run, plan changes left untouched",
			zap.Int("existing", len(report.Existing)),
			zap.Int("computed", len(report.Timeline)),
			zap.Bool("changed", report.Changed),
		)
		return report, nil
	}

	deleted, err := s.replace(ctx, relayID, report.Timeline)
	if err != nil {
		return report, err
	}

	report.Status = planchangedomain.RebuildStatusApplied
	report.Deleted = deleted
	report.Created = len(report.Timeline)
	log.Debug("plan changes replaced",
		zap.Int64("deleted", report.Deleted),
		zap.Int("created", report.Created),
		zap.Bool("changed", report.Changed),
	)
	return report, nil
}

// replace swaps the stored timeline for the computed one in a single transaction.
func (s *Service) replace(ctx context.Context, relayID string, timeline []planchangedomain.PlanInterval) (int64, error) {
	now := s.clock.Now()
	var deleted int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.DeleteByRelay(ctx, tx, relayID)
		if err != nil {
			return fmt.Errorf("delete plan changes: %w", err)
		}

		for i, interval := range timeline {
			change := planchangedomain.PlanChange{
				ID:         s.genID.Generate(),
				RelayID:    relayID,
				PlanType:   interval.PlanType,
				AmountPaid: interval.AmountPaid,
				StartedAt:  interval.StartedAt,
				EndedAt:    interval.EndedAt,
				OrderID:    interval.OrderID,
				CreatedAt:  now,
			}
			if err := s.repo.Insert(ctx, tx, &change); err != nil {
				return fmt.Errorf("insert plan change %d of %d (order %s): %w", i+1, len(timeline), interval.OrderID, err)
			}
			s.metrics.RecordPlanChangeWritten(ctx, interval.PlanType)
		}

		stored, err := s.repo.CountByRelay(ctx, tx, relayID)
		if err != nil {
			return fmt.Errorf("count plan changes: %w", err)
		}
		if stored != int64(len(timeline)) {
			return fmt.Errorf("%w: stored %d, computed %d", planchangedomain.ErrVerificationFailed, stored, len(timeline))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// RebuildAll implements domain.Service.
func (s *Service) RebuildAll(ctx context.Context, req planchangedomain.RebuildAllRequest) (planchangedomain.BatchReport, error) {
	log := obslogger.WithContext(ctx, s.log)
	batch := planchangedomain.BatchReport{DryRun: req.DryRun}

	relayIDs, err := s.orderRepo.ListRelayIDsWithQualifyingOrders(ctx, s.db, s.orderTypes)
	if err != nil {
		return batch, fmt.Errorf("list relays: %w", err)
	}
	batch.Total = len(relayIDs)
	log.Info("plan rebuild batch started",
		zap.Int("relays", batch.Total),
		zap.Bool("dry_run", req.DryRun),
	)

	for i, relayID := range relayIDs {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return batch, err
			}
		}

		report, err := s.Rebuild(ctx, planchangedomain.RebuildRequest{RelayID: relayID, DryRun: req.DryRun})
		if err != nil {
			batch.Errored++
			batch.Errors = append(batch.Errors, planchangedomain.RelayError{RelayID: relayID, Error: err.Error()})
			obslogger.WithRelay(log, relayID).Error("relay rebuild failed",
				zap.String("reason", obsmetrics.ClassifyErrorReason(err)),
				zap.Bool("retryable", obsmetrics.IsRetryable(err)),
				zap.Error(err),
			)
			continue
		}

		batch.Reports = append(batch.Reports, report)
		if report.Status == planchangedomain.RebuildStatusNotFound {
			batch.Skipped++
		} else {
			batch.Processed++
		}
		if report.Changed {
			batch.Changed++
		}
	}

	return batch, nil
}

func (s *Service) pause(ctx context.Context) error {
	if s.throttle <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
