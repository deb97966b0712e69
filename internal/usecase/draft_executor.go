package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
)

// execute is the only path that fills a pick. The claim runs before the
// league row is locked so the loser of a race on the same row sees
// ErrConcurrencyConflict instead of a stale turn check.
func (s *DraftService) execute(
	ctx context.Context,
	tx draft.Tx,
	league draft.League,
	target draft.Pick,
	asset draft.Asset,
	source draft.PickSource,
) (PickResult, error) {
	now := s.now().UTC()

	pick := target
	pick.AssetID = asset.ID
	pick.PickedAt = &now
	pick.Source = source
	if err := tx.ClaimPick(ctx, pick); err != nil {
		return PickResult{}, fmt.Errorf("claim pick league=%s overall=%d: %w", pick.LeagueID, pick.OverallPick, err)
	}

	entryID, err := s.idGen.NewID()
	if err != nil {
		return PickResult{}, fmt.Errorf("generate roster entry id: %w", err)
	}
	position := strings.TrimSpace(league.HoldingPosition)
	if position == "" {
		position = asset.Position
	}
	entry, err := tx.AppendRosterEntry(ctx, draft.RosterEntry{
		ID:        entryID,
		LeagueID:  pick.LeagueID,
		TeamID:    pick.OwnerTeamID,
		Week:      draft.InitialRosterWeek,
		Position:  position,
		AssetID:   asset.ID,
		CreatedAt: now,
	})
	if err != nil {
		return PickResult{}, fmt.Errorf("append roster entry: %w", err)
	}

	locked, exists, err := tx.LockLeague(ctx, league.LeagueID)
	if err != nil {
		return PickResult{}, fmt.Errorf("lock draft league: %w", err)
	}
	if !exists {
		return PickResult{}, fmt.Errorf("%w: league=%s", ErrNotFound, league.LeagueID)
	}
	if err := pickAllowed(locked.Status, source); err != nil {
		return PickResult{}, err
	}

	picks, err := tx.ListPicks(ctx, locked.LeagueID)
	if err != nil {
		return PickResult{}, fmt.Errorf("list draft picks: %w", err)
	}

	result := PickResult{Pick: pick, RosterEntry: entry}
	locked.UpdatedAt = now
	if next, ok := draft.CurrentPick(picks); ok {
		if locked.Status == draft.StatusInProgress {
			deadline := now.Add(locked.PickDuration())
			locked.Deadline = &deadline
		}
		result.NextPick = &next
	} else {
		locked.Status = draft.StatusCompleted
		locked.Deadline = nil
		result.Completed = true
	}

	if err := tx.UpdateLeague(ctx, locked); err != nil {
		return PickResult{}, fmt.Errorf("update draft league: %w", err)
	}
	if err := s.appendEvent(ctx, tx, locked.LeagueID, draft.EventPickMade, draft.PickMadePayload(pick, entry), now); err != nil {
		return PickResult{}, err
	}
	if result.Completed {
		if err := s.appendEvent(ctx, tx, locked.LeagueID, draft.EventCompleted, draft.LeaguePayload(locked), now); err != nil {
			return PickResult{}, err
		}
	}

	result.League = locked
	return result, nil
}

// pickAllowed re-checks the status under the league lock. Forced picks may
// land while the draft is paused.
func pickAllowed(status draft.Status, source draft.PickSource) error {
	if source == draft.SourceForced && status == draft.StatusPaused {
		return nil
	}
	return status.CanPick()
}
