package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
	"go.opentelemetry.io/otel/trace"
)

const (
	AutoPickJobName = "draft-autopick"
	AutoPickJobPath = "/v1/internal/jobs/draft-autopick"
)

type DraftSchedulerConfig struct {
	// AutoPickGrace is added to the remaining time so the job lands after the
	// deadline even with small clock drift between replicas.
	AutoPickGrace time.Duration
}

// DraftScheduler turns every new deadline into one delayed auto-pick job.
type DraftScheduler struct {
	queue    JobQueue
	recorder *dispatchRecorder
	cfg      DraftSchedulerConfig
	logger   *logging.Logger
	now      func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewDraftScheduler(
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg DraftSchedulerConfig,
	logger *logging.Logger,
) *DraftScheduler {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.AutoPickGrace < 0 {
		cfg.AutoPickGrace = 0
	}

	s := &DraftScheduler{
		queue:  queue,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	s.recorder = newDispatchRecorder(dispatchRepo, logger, func() time.Time { return s.now() })
	return s
}

func (s *DraftScheduler) ScheduleTurn(ctx context.Context, turn draft.OverdueTurn) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftScheduler.ScheduleTurn")
	defer span.End()

	now := s.now().UTC()
	delay := turn.Deadline.Sub(now) + s.cfg.AutoPickGrace
	if delay < 0 {
		delay = 0
	}

	dedupID := autoPickDedupKey(turn.LeagueID, turn.OverallPick, turn.Deadline)
	payload := map[string]any{
		"league_id":    turn.LeagueID,
		"team_id":      turn.TeamID,
		"overall_pick": turn.OverallPick,
		"dispatch_id":  dedupID,
	}
	runAt := now.Add(delay)
	event := jobscheduler.DispatchEvent{
		DispatchID:  dedupID,
		JobName:     AutoPickJobName,
		LeagueID:    turn.LeagueID,
		TeamID:      turn.TeamID,
		OverallPick: turn.OverallPick,
		RunAt:       &runAt,
		OccurredAt:  now,
	}

	if err := s.queue.Enqueue(ctx, AutoPickJobPath, payload, delay, dedupID); err != nil {
		event.Status = jobscheduler.StatusFailed
		event.Detail = err.Error()
		s.recorder.record(ctx, event)
		return fmt.Errorf("enqueue %s league=%s overall=%d: %w", AutoPickJobName, turn.LeagueID, turn.OverallPick, err)
	}

	event.Status = jobscheduler.StatusSent
	s.recorder.record(ctx, event)
	s.logger.DebugContext(ctx, "draft auto pick scheduled",
		"league_id", turn.LeagueID,
		"team_id", turn.TeamID,
		"overall_pick", turn.OverallPick,
		"delay", delay,
	)
	return nil
}

// autoPickDedupKey is unique per (league, pick, deadline) so a resume or a
// new deadline for the same pick schedules a fresh job.
func autoPickDedupKey(leagueID string, overallPick int, deadline time.Time) string {
	return AutoPickJobName + "-" +
		sanitizeDedupSegment(leagueID) + "-" +
		strconv.Itoa(overallPick) + "-" +
		strconv.FormatInt(deadline.UTC().Unix(), 10)
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

type dispatchRecorder struct {
	repo   jobscheduler.Repository
	logger *logging.Logger
	now    func() time.Time
}

func newDispatchRecorder(repo jobscheduler.Repository, logger *logging.Logger, now func() time.Time) *dispatchRecorder {
	return &dispatchRecorder{repo: repo, logger: logger, now: now}
}

func (r *dispatchRecorder) record(ctx context.Context, event jobscheduler.DispatchEvent) {
	if r == nil || r.repo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now().UTC()
	}
	if err := r.repo.UpsertEvent(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
