package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-draft/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/fantasy-draft/internal/platform/querybuilder"
)

const draftJobDispatchTable = "draft_job_dispatches"

// upsertDispatchConflict mirrors jobscheduler.Dispatch.Apply: a sent event
// resets the row, delivered events bump attempts and keep sent_at.
const upsertDispatchConflict = `ON CONFLICT (dispatch_id)
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    league_public_id = EXCLUDED.league_public_id,
    team_public_id = COALESCE(EXCLUDED.team_public_id, draft_job_dispatches.team_public_id),
    overall_pick = COALESCE(EXCLUDED.overall_pick, draft_job_dispatches.overall_pick),
    status = EXCLUDED.status,
    run_at = COALESCE(EXCLUDED.run_at, draft_job_dispatches.run_at),
    sent_at = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_at
        ELSE draft_job_dispatches.sent_at
    END,
    finished_at = CASE
        WHEN EXCLUDED.status = 'sent' THEN NULL
        ELSE EXCLUDED.finished_at
    END,
    attempts = CASE
        WHEN EXCLUDED.status = 'sent' THEN 0
        ELSE draft_job_dispatches.attempts + 1
    END,
    detail = EXCLUDED.detail,
    last_trace_id = EXCLUDED.last_trace_id,
    last_span_id = EXCLUDED.last_span_id,
    last_occurred_at = EXCLUDED.last_occurred_at,
    updated_at = NOW()`

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel(draftJobDispatchTable, dispatchInsertModel(event), upsertDispatchConflict)
	if err != nil {
		return fmt.Errorf("build upsert draft job dispatch query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert draft job dispatch dispatch_id=%s status=%s: %w", event.DispatchID, event.Status, err)
	}
	return nil
}

func dispatchInsertModel(event jobscheduler.DispatchEvent) draftJobDispatchInsertModel {
	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	leagueID := strings.TrimSpace(event.LeagueID)
	if leagueID == "" {
		leagueID = "unknown"
	}
	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}

	model := draftJobDispatchInsertModel{
		DispatchID:     strings.TrimSpace(event.DispatchID),
		JobName:        jobName,
		LeagueID:       leagueID,
		TeamID:         optionalString(event.TeamID),
		Status:         string(event.Status),
		RunAt:          utcPtr(event.RunAt),
		Detail:         optionalString(event.Detail),
		LastTraceID:    optionalString(event.TraceID),
		LastSpanID:     optionalString(event.SpanID),
		LastOccurredAt: occurredAt,
	}
	if event.OverallPick > 0 {
		pick := event.OverallPick
		model.OverallPick = &pick
	}
	if event.Status == jobscheduler.StatusSent {
		model.SentAt = &occurredAt
		model.Detail = nil
	} else if event.Status.Delivered() {
		model.FinishedAt = &occurredAt
		model.Attempts = 1
	}
	return model
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := v.UTC()
	return &out
}
