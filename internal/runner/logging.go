package runner

import (
	"context"
	"time"

	obslogger "github.com/smallbiznis/relayplan/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/relayplan/internal/observability/metrics"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"go.uber.org/zap"
)

const timeLayout = time.RFC3339

func (r *Runner) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, r.log)
}

func (r *Runner) logRunStart(ctx context.Context, run *rebuildRun) {
	scope := run.relayID
	if scope == "" {
		scope = "all"
	}
	r.logger(ctx).Info("plan.rebuild.start",
		zap.String("scope", scope),
		zap.Bool("dry_run", run.dryRun),
	)
}

func (r *Runner) logRunFinish(ctx context.Context, run *rebuildRun, finishedAt time.Time, runErr error) {
	fields := []zap.Field{
		zap.String("status", string(run.status(runErr))),
		zap.Bool("dry_run", run.dryRun),
		zap.Int64("duration_ms", finishedAt.Sub(run.startedAt).Milliseconds()),
		zap.Int("total", run.total),
		zap.Int("processed", run.processed),
		zap.Int("skipped", run.skipped),
		zap.Int("errored", run.errored),
		zap.Int("changed", run.changed),
	}
	log := r.logger(ctx)
	if runErr != nil {
		log.Error("plan.rebuild.finish", append(fields, zap.Error(runErr))...)
		return
	}
	if run.errored > 0 {
		log.Warn("plan.rebuild.finish", fields...)
		return
	}
	log.Info("plan.rebuild.finish", fields...)
}

// logReport prints the before and after state of one relay, then each interval.
func (r *Runner) logReport(ctx context.Context, report planchangedomain.RebuildReport) {
	log := obslogger.WithRelay(r.logger(ctx), report.RelayID)
	if report.Status == planchangedomain.RebuildStatusNotFound {
		log.Warn("plan.rebuild.relay_not_found")
		return
	}

	fields := []zap.Field{
		zap.String("status", string(report.Status)),
		zap.Int("existing", len(report.Existing)),
		zap.Int("computed", len(report.Timeline)),
		zap.Bool("changed", report.Changed),
	}
	if report.Status == planchangedomain.RebuildStatusApplied {
		fields = append(fields,
			zap.Int64("deleted", report.Deleted),
			zap.Int("created", report.Created),
		)
	}
	log.Info("plan.rebuild.relay", fields...)

	for i, interval := range report.Timeline {
		log.Info("plan.rebuild.interval",
			zap.Int("index", i),
			zap.String("plan_type", interval.PlanType),
			zap.Int64("amount_paid", interval.AmountPaid),
			zap.String("started_at", interval.StartedAt.UTC().Format(timeLayout)),
			zap.String("ended_at", endedAt(interval)),
			zap.String("order_id", interval.OrderID),
		)
	}
}

func (r *Runner) logRelayError(ctx context.Context, relayID string, err error) {
	obslogger.WithRelay(r.logger(ctx), relayID).Error("plan.rebuild.relay_failed",
		zap.String("reason", obsmetrics.ClassifyErrorReason(err)),
		zap.Bool("retryable", obsmetrics.IsRetryable(err)),
		zap.Error(err),
	)
}

func endedAt(interval planchangedomain.PlanInterval) string {
	if interval.Ongoing() {
		return "ongoing"
	}
	return interval.EndedAt.UTC().Format(timeLayout)
}
