package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

type AutoPickJobInput struct {
	LeagueID    string
	TeamID      string
	OverallPick int
	DispatchID  string
}

type AutoPickJobResult struct {
	LeagueID    string      `json:"league_id"`
	TeamID      string      `json:"team_id"`
	Applied     bool        `json:"applied"`
	SkipReason  string      `json:"skip_reason,omitempty"`
	Pick        *draft.Pick `json:"-"`
	Completed   bool        `json:"completed"`
	OverallPick int         `json:"overall_pick,omitempty"`
}

const (
	SkipReasonNotOverdue = "not_overdue"
	SkipReasonLostRace   = "lost_race"
)

// DraftJobService runs the auto-pick job delivered by the job queue or the
// in-process sweeper.
type DraftJobService struct {
	draftSvc *DraftService
	recorder *dispatchRecorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewDraftJobService(
	draftSvc *DraftService,
	dispatchRepo jobscheduler.Repository,
	logger *logging.Logger,
) *DraftJobService {
	if logger == nil {
		logger = logging.Default()
	}

	s := &DraftJobService{
		draftSvc: draftSvc,
		logger:   logger,
		now:      time.Now,
	}
	s.recorder = newDispatchRecorder(dispatchRepo, logger, func() time.Time { return s.now() })
	return s
}

// RunAutoPick re-checks IsOverdue before picking. A job that fires after the
// team already picked, or after the draft was paused, is a no-op.
func (s *DraftJobService) RunAutoPick(ctx context.Context, input AutoPickJobInput) (AutoPickJobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftJobService.RunAutoPick")
	defer span.End()

	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.LeagueID == "" || input.TeamID == "" {
		return AutoPickJobResult{}, fmt.Errorf("%w: league id and team id are required", ErrInvalidInput)
	}

	result := AutoPickJobResult{LeagueID: input.LeagueID, TeamID: input.TeamID}

	overdue, err := s.draftSvc.IsOverdue(ctx, input.LeagueID, input.TeamID)
	if err != nil {
		traceFailure(ctx, err)
		s.recordOutcome(ctx, input, "", err)
		return AutoPickJobResult{}, err
	}
	if !overdue {
		result.SkipReason = SkipReasonNotOverdue
		s.recordOutcome(ctx, input, SkipReasonNotOverdue, nil)
		s.logger.DebugContext(ctx, "draft auto pick skipped",
			"league_id", input.LeagueID,
			"team_id", input.TeamID,
			"overall_pick", input.OverallPick,
		)
		return result, nil
	}

	applied, err := s.draftSvc.AutoPick(ctx, AutoPickInput{
		LeagueID:    input.LeagueID,
		TeamID:      input.TeamID,
		OverallPick: input.OverallPick,
	})
	s.recordOutcome(ctx, input, "", err)
	if err != nil {
		traceFailure(ctx, err)
		return AutoPickJobResult{}, err
	}

	result.Applied = true
	result.Pick = &applied.Pick
	result.OverallPick = applied.Pick.OverallPick
	result.Completed = applied.Completed
	return result, nil
}

func (s *DraftJobService) runTurn(ctx context.Context, turn draft.OverdueTurn) error {
	res, err := s.RunAutoPick(ctx, AutoPickJobInput{
		LeagueID:    turn.LeagueID,
		TeamID:      turn.TeamID,
		OverallPick: turn.OverallPick,
	})
	if err != nil {
		if isLostRace(err) {
			return errSweepSkipped
		}
		s.logger.WarnContext(ctx, "sweep auto pick failed",
			"league_id", turn.LeagueID,
			"team_id", turn.TeamID,
			"overall_pick", turn.OverallPick,
			"error", err,
		)
		return err
	}
	if !res.Applied {
		return errSweepSkipped
	}
	return nil
}

func (s *DraftJobService) recordOutcome(ctx context.Context, input AutoPickJobInput, skipReason string, err error) {
	event := jobscheduler.DispatchEvent{
		DispatchID:  strings.TrimSpace(input.DispatchID),
		JobName:     AutoPickJobName,
		LeagueID:    input.LeagueID,
		TeamID:      input.TeamID,
		OverallPick: input.OverallPick,
		Status:      jobscheduler.StatusCompleted,
		OccurredAt:  s.now().UTC(),
	}
	switch {
	case err != nil && isLostRace(err):
		event.Status = jobscheduler.StatusSkipped
		event.Detail = SkipReasonLostRace
	case err != nil:
		event.Status = jobscheduler.StatusFailed
		event.Detail = err.Error()
	case skipReason != "":
		event.Status = jobscheduler.StatusSkipped
		event.Detail = skipReason
	}
	s.recorder.record(ctx, event)
}

// IsLostAutoPickRace reports whether an auto-pick failed only because the
// turn was already resolved elsewhere.
func IsLostAutoPickRace(err error) bool {
	return isLostRace(err)
}

// isLostRace matches outcomes where a manual pick or another runner got there
// first.
func isLostRace(err error) bool {
	return errors.Is(err, draft.ErrConcurrencyConflict) ||
		errors.Is(err, draft.ErrNoPicksRemaining) ||
		errors.Is(err, draft.ErrInvalidState)
}
