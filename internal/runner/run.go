package runner

import (
	"time"

	"github.com/bwmarrin/snowflake"
	planchangedomain "github.com/smallbiznis/relayplan/internal/planchange/domain"
	"gorm.io/datatypes"
)

type rebuildRun struct {
	runID     string
	relayID   string
	dryRun    bool
	startedAt time.Time

	total     int
	processed int
	skipped   int
	errored   int
	changed   int
	errors    []planchangedomain.RelayError
}

func (r *rebuildRun) addReport(report planchangedomain.RebuildReport) {
	if report.Status == planchangedomain.RebuildStatusNotFound {
		r.skipped++
	} else {
		r.processed++
	}
	if report.Changed {
		r.changed++
	}
}

func (r *rebuildRun) addBatch(batch planchangedomain.BatchReport) {
	r.total = batch.Total
	r.processed += batch.Processed
	r.skipped += batch.Skipped
	r.errored += batch.Errored
	r.changed += batch.Changed
	r.errors = append(r.errors, batch.Errors...)
}

func (r *rebuildRun) status(runErr error) planchangedomain.RunStatus {
	switch {
	case runErr != nil:
		return planchangedomain.RunStatusFailed
	case r.errored > 0:
		return planchangedomain.RunStatusPartial
	default:
		return planchangedomain.RunStatusSucceeded
	}
}

func (r *rebuildRun) auditRow(id snowflake.ID, finishedAt time.Time, runErr error) planchangedomain.RebuildRun {
	summary := datatypes.JSONMap{
		"total":   r.total,
		"changed": r.changed,
	}
	if len(r.errors) > 0 {
		relayErrors := make([]map[string]any, 0, len(r.errors))
		for _, e := range r.errors {
			relayErrors = append(relayErrors, map[string]any{"relay_id": e.RelayID, "error": e.Error})
		}
		summary["relay_errors"] = relayErrors
	}
	if runErr != nil {
		summary["error"] = runErr.Error()
	}

	return planchangedomain.RebuildRun{
		ID:         id,
		RunID:      r.runID,
		RelayID:    r.relayID,
		DryRun:     r.dryRun,
		Status:     r.status(runErr),
		Processed:  r.processed,
		Skipped:    r.skipped,
		Errored:    r.errored,
		Summary:    summary,
		StartedAt:  r.startedAt,
		FinishedAt: finishedAt,
	}
}
