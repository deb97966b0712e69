package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/repository/memory"
	usecasemock "github.com/riskibarqy/fantasy-draft/internal/mocks/usecase"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func TestAutoPickDedupKey_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := autoPickDedupKey("idn:liga/1 2025", 7, deadline)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "draft-autopick-idn-liga-1-2025-7-1771993542"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestAutoPickDedupKey_ChangesWithDeadline(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	first := autoPickDedupKey("league", 3, deadline)
	resumed := autoPickDedupKey("league", 3, deadline.Add(90*time.Second))
	if first == resumed {
		t.Fatalf("expected a fresh dedup key after the deadline moved, got %q twice", first)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}

func TestDraftScheduler_ScheduleTurn(t *testing.T) {
	now := time.Date(2026, time.September, 1, 18, 0, 0, 0, time.UTC)
	turn := draft.OverdueTurn{
		LeagueID:    memory.LeagueIDDemoDraft,
		TeamID:      teamMacan,
		OverallPick: 2,
		Deadline:    now.Add(90 * time.Second),
	}
	wantDedup := autoPickDedupKey(turn.LeagueID, turn.OverallPick, turn.Deadline)

	queue := usecasemock.NewJobQueue(t)
	queue.On("Enqueue",
		mock.Anything,
		AutoPickJobPath,
		mock.MatchedBy(func(payload any) bool {
			m, ok := payload.(map[string]any)
			return ok &&
				m["league_id"] == turn.LeagueID &&
				m["team_id"] == turn.TeamID &&
				m["overall_pick"] == turn.OverallPick &&
				m["dispatch_id"] == wantDedup
		}),
		92*time.Second,
		wantDedup,
	).Return(nil).Once()

	dispatches := memory.NewJobDispatchRepository()
	scheduler := NewDraftScheduler(queue, dispatches, DraftSchedulerConfig{AutoPickGrace: 2 * time.Second}, logging.NewNop())
	scheduler.now = func() time.Time { return now }

	if err := scheduler.ScheduleTurn(context.Background(), turn); err != nil {
		t.Fatalf("schedule turn: %v", err)
	}

	events := dispatches.List()
	if len(events) != 1 {
		t.Fatalf("expected one dispatch event, got %d", len(events))
	}
	if events[0].Status != jobscheduler.StatusSent || events[0].DispatchID != wantDedup || events[0].JobName != AutoPickJobName {
		t.Fatalf("unexpected dispatch event: %+v", events[0])
	}
	if events[0].RunAt == nil || !events[0].RunAt.Equal(now.Add(92*time.Second)) || events[0].TeamID != teamMacan {
		t.Fatalf("unexpected dispatch run time: %+v", events[0])
	}
}

func TestDraftScheduler_PastDeadlineEnqueuesImmediately(t *testing.T) {
	now := time.Date(2026, time.September, 1, 18, 0, 0, 0, time.UTC)
	turn := draft.OverdueTurn{LeagueID: memory.LeagueIDDemoDraft, TeamID: teamGaruda, OverallPick: 1, Deadline: now.Add(-time.Minute)}

	queue := usecasemock.NewJobQueue(t)
	queue.On("Enqueue", mock.Anything, AutoPickJobPath, mock.Anything, time.Duration(0), mock.AnythingOfType("string")).Return(nil).Once()

	scheduler := NewDraftScheduler(queue, nil, DraftSchedulerConfig{AutoPickGrace: time.Second}, logging.NewNop())
	scheduler.now = func() time.Time { return now }

	if err := scheduler.ScheduleTurn(context.Background(), turn); err != nil {
		t.Fatalf("schedule turn: %v", err)
	}
}

func TestDraftScheduler_EnqueueFailureIsRecorded(t *testing.T) {
	now := time.Date(2026, time.September, 1, 18, 0, 0, 0, time.UTC)
	turn := draft.OverdueTurn{LeagueID: memory.LeagueIDDemoDraft, TeamID: teamGaruda, OverallPick: 1, Deadline: now.Add(time.Minute)}
	queueErr := errors.New("qstash unavailable")

	queue := usecasemock.NewJobQueue(t)
	queue.On("Enqueue", mock.Anything, AutoPickJobPath, mock.Anything, mock.Anything, mock.Anything).Return(queueErr).Once()

	dispatches := memory.NewJobDispatchRepository()
	scheduler := NewDraftScheduler(queue, dispatches, DraftSchedulerConfig{}, logging.NewNop())
	scheduler.now = func() time.Time { return now }

	err := scheduler.ScheduleTurn(context.Background(), turn)
	if !errors.Is(err, queueErr) {
		t.Fatalf("expected queue error, got %v", err)
	}

	events := dispatches.List()
	if len(events) != 1 || events[0].Status != jobscheduler.StatusFailed || events[0].Detail != queueErr.Error() {
		t.Fatalf("unexpected dispatch events: %+v", events)
	}
}
