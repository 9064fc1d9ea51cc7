// Package runner drives one plan rebuild invocation from lock to audit row.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/relayplan/internal/clock"
	"github.com/smallbiznis/relayplan/internal/config"
	obscontext "github.com/smallbiznis/relayplan/internal/observability/context"
	obslogger "github.com/smallbiznis/relayplan/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/relayplan/internal/observability/metrics"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"github.com/smallbiznis/relayplan/internal/runlock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	actorKind = "system"
	actorID   = "planrebuild"

	releaseTimeout = 5 * time.Second
)

type Runner struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   config.RebuildConfig

	svc   planchangedomain.Service
	repo  planchangedomain.Repository
	guard runlock.Guard

	pusher         *obsmetrics.Pusher
	rebuildMetrics *obsmetrics.RebuildMetrics
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Service planchangedomain.Service
	Repo    planchangedomain.Repository
	Guard   runlock.Guard
	Pusher  *obsmetrics.Pusher `optional:"true"`
}

func New(p Params) *Runner {
	return &Runner{
		db:    p.DB,
		log:   p.Log.Named("runner"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Config.Rebuild,

		svc:   p.Service,
		repo:  p.Repo,
		guard: p.Guard,

		pusher:         p.Pusher,
		rebuildMetrics: obsmetrics.Rebuild(),
	}
}

// Run executes a single relay rebuild when a relay id is configured and a
// batch over every eligible relay otherwise.
func (r *Runner) Run(parent context.Context) error {
	startedAt := r.clock.Now()
	run := &rebuildRun{
		runID:     ulid.MustNew(ulid.Timestamp(startedAt), ulid.DefaultEntropy()).String(),
		relayID:   r.cfg.RelayID,
		dryRun:    r.cfg.DryRun,
		startedAt: startedAt,
	}

	ctx := obscontext.WithRunID(parent, run.runID)
	ctx = obscontext.WithActor(ctx, actorKind, actorID)
	log := r.logger(ctx)

	token, err := r.guard.Acquire(ctx)
	if err != nil {
		if errors.Is(err, runlock.ErrRunInProgress) {
			log.Error("plan.rebuild.locked", zap.String("key", runlock.RebuildLockKey))
		}
		return fmt.Errorf("plan rebuild: %w", err)
	}
	defer r.release(ctx, token)

	r.logRunStart(ctx, run)
	runErr := r.execute(ctx, run)

	finishedAt := r.clock.Now()
	r.recordRun(ctx, run, finishedAt, runErr)
	r.rebuildMetrics.SetRunFinished(finishedAt, finishedAt.Sub(startedAt), runErr == nil)
	r.pushMetrics(ctx)
	r.logRunFinish(ctx, run, finishedAt, runErr)

	if runErr != nil {
		return fmt.Errorf("plan rebuild: %w", runErr)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, run *rebuildRun) error {
	if run.relayID != "" {
		report, err := r.svc.Rebuild(ctx, planchangedomain.RebuildRequest{
			RelayID: run.relayID,
			DryRun:  run.dryRun,
		})
		run.total = 1
		if err != nil {
			run.errored++
			run.errors = append(run.errors, planchangedomain.RelayError{RelayID: run.relayID, Error: err.Error()})
			r.logRelayError(ctx, run.relayID, err)
			return err
		}
		run.addReport(report)
		r.logReport(ctx, report)
		return nil
	}

	batch, err := r.svc.RebuildAll(ctx, planchangedomain.RebuildAllRequest{DryRun: run.dryRun})
	run.addBatch(batch)
	for _, report := range batch.Reports {
		r.logReport(ctx, report)
	}
	for _, relayErr := range batch.Errors {
		obslogger.WithRelay(r.logger(ctx), relayErr.RelayID).Warn("plan.rebuild.relay_failed",
			zap.String("error", relayErr.Error),
		)
	}
	return err
}

func (r *Runner) release(ctx context.Context, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := r.guard.Release(releaseCtx, token); err != nil {
		r.logger(ctx).Warn("plan.rebuild.unlock_failed", zap.Error(err))
	}
}

// recordRun writes the audit row. A failed write is logged and otherwise ignored.
func (r *Runner) recordRun(ctx context.Context, run *rebuildRun, finishedAt time.Time, runErr error) {
	row := run.auditRow(r.genID.Generate(), finishedAt, runErr)
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := r.repo.InsertRun(writeCtx, r.db, &row); err != nil {
		r.logger(ctx).Warn("plan.rebuild.audit_failed",
			zap.String("reason", obsmetrics.ClassifyErrorReason(err)),
			zap.Error(err),
		)
	}
}

func (r *Runner) pushMetrics(ctx context.Context) {
	if r.pusher == nil || !r.pusher.Enabled() {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := r.pusher.Push(pushCtx); err != nil {
		r.logger(ctx).Warn("plan.rebuild.metrics_push_failed", zap.Error(err))
	}
}
