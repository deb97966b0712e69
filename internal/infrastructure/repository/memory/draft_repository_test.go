package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
)

var errAbort = errors.New("abort")

func newStartedRepo(t *testing.T) *DraftRepository {
	t.Helper()

	repo := NewSeededDraftRepository()
	picks, err := draft.GenerateOrder(LeagueIDDemoDraft, SeedDraftTeams(), draft.OrderSnake, 2)
	if err != nil {
		t.Fatalf("generate order: %v", err)
	}
	err = repo.WithinTx(context.Background(), func(ctx context.Context, tx draft.Tx) error {
		return tx.InsertPicks(ctx, picks)
	})
	if err != nil {
		t.Fatalf("insert picks: %v", err)
	}
	return repo
}

func claimOf(overall int, assetID string) draft.Pick {
	at := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	return draft.Pick{LeagueID: LeagueIDDemoDraft, OverallPick: overall, AssetID: assetID, PickedAt: &at, Source: draft.SourceManual}
}

func TestDraftRepository_InsertPicksKeepsExistingRows(t *testing.T) {
	ctx := context.Background()
	repo := newStartedRepo(t)

	err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		return tx.ClaimPick(ctx, claimOf(1, "idn-fwd-01"))
	})
	if err != nil {
		t.Fatalf("claim pick: %v", err)
	}

	again, _ := draft.GenerateOrder(LeagueIDDemoDraft, SeedDraftTeams(), draft.OrderSnake, 2)
	err = repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		return tx.InsertPicks(ctx, again)
	})
	if err != nil {
		t.Fatalf("insert picks twice: %v", err)
	}

	picks, _ := repo.ListPicks(ctx, LeagueIDDemoDraft)
	if len(picks) != 8 {
		t.Fatalf("expected 8 picks, got %d", len(picks))
	}
	if !picks[0].IsPicked() || picks[0].AssetID != "idn-fwd-01" {
		t.Fatalf("existing claim was overwritten: %+v", picks[0])
	}
}

func TestDraftRepository_ClaimPickConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newStartedRepo(t)

	err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		if err := tx.ClaimPick(ctx, claimOf(1, "idn-fwd-01")); err != nil {
			t.Fatalf("first claim: %v", err)
		}

		innerErr := repo.WithinTx(ctx, func(ctx context.Context, other draft.Tx) error {
			if err := other.ClaimPick(ctx, claimOf(1, "idn-fwd-02")); !errors.Is(err, draft.ErrConcurrencyConflict) {
				t.Fatalf("expected ErrConcurrencyConflict for reserved row, got %v", err)
			}
			if err := other.ClaimPick(ctx, claimOf(2, "idn-fwd-01")); !errors.Is(err, draft.ErrAssetUnavailable) {
				t.Fatalf("expected ErrAssetUnavailable for reserved asset, got %v", err)
			}
			return errAbort
		})
		if !errors.Is(innerErr, errAbort) {
			t.Fatalf("expected inner abort, got %v", innerErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer tx: %v", err)
	}

	err = repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		if err := tx.ClaimPick(ctx, claimOf(1, "idn-fwd-02")); !errors.Is(err, draft.ErrConcurrencyConflict) {
			t.Fatalf("expected ErrConcurrencyConflict for filled row, got %v", err)
		}
		if err := tx.ClaimPick(ctx, claimOf(2, "idn-fwd-01")); !errors.Is(err, draft.ErrAssetUnavailable) {
			t.Fatalf("expected ErrAssetUnavailable for drafted asset, got %v", err)
		}
		return tx.ClaimPick(ctx, claimOf(2, "idn-fwd-02"))
	})
	if err != nil {
		t.Fatalf("claim second pick: %v", err)
	}
}

func TestDraftRepository_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	repo := newStartedRepo(t)

	err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		if err := tx.ClaimPick(ctx, claimOf(1, "idn-fwd-01")); err != nil {
			return err
		}
		if _, err := tx.AppendRosterEntry(ctx, draft.RosterEntry{ID: "r1", LeagueID: LeagueIDDemoDraft, TeamID: "team-garuda", Week: 1, Position: "BENCH", AssetID: "idn-fwd-01"}); err != nil {
			return err
		}
		league, _, _ := tx.LockLeague(ctx, LeagueIDDemoDraft)
		league.Status = draft.StatusCompleted
		if err := tx.UpdateLeague(ctx, league); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, draft.Event{ID: "e1", LeagueID: LeagueIDDemoDraft, Type: draft.EventPickMade}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort, got %v", err)
	}

	picks, _ := repo.ListPicks(ctx, LeagueIDDemoDraft)
	if picks[0].IsPicked() {
		t.Fatalf("claim survived rollback")
	}
	entries, _ := repo.ListRosterEntries(ctx, LeagueIDDemoDraft)
	if len(entries) != 0 {
		t.Fatalf("roster entry survived rollback: %+v", entries)
	}
	league, _, _ := repo.GetLeague(ctx, LeagueIDDemoDraft)
	if league.Status != draft.StatusNotStarted {
		t.Fatalf("league update survived rollback: %s", league.Status)
	}
	events, _ := repo.ListUnpublishedEvents(ctx, 10)
	if len(events) != 0 {
		t.Fatalf("event survived rollback: %+v", events)
	}

	err = repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		return tx.ClaimPick(ctx, claimOf(1, "idn-fwd-01"))
	})
	if err != nil {
		t.Fatalf("reservation was not released on rollback: %v", err)
	}
}

func TestDraftRepository_RosterSlotIndex(t *testing.T) {
	ctx := context.Background()
	repo := newStartedRepo(t)

	entry := func(id, teamID, position string) draft.RosterEntry {
		return draft.RosterEntry{ID: id, LeagueID: LeagueIDDemoDraft, TeamID: teamID, Week: 1, Position: position, AssetID: id}
	}

	var got []int
	err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		for _, e := range []draft.RosterEntry{
			entry("a", "team-garuda", "BENCH"),
			entry("b", "team-garuda", "BENCH"),
			entry("c", "team-macan", "BENCH"),
			entry("d", "team-garuda", "FWD"),
		} {
			stored, err := tx.AppendRosterEntry(ctx, e)
			if err != nil {
				return err
			}
			got = append(got, stored.SlotIndex)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append roster entries: %v", err)
	}

	want := []int{0, 1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: got=%d want=%d", i, got[i], want[i])
		}
	}

	err = repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		stored, err := tx.AppendRosterEntry(ctx, entry("e", "team-garuda", "BENCH"))
		if err != nil {
			return err
		}
		if stored.SlotIndex != 2 {
			t.Fatalf("expected committed entries to be counted, got slot %d", stored.SlotIndex)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append after commit: %v", err)
	}
}

func TestDraftRepository_ListOverdue(t *testing.T) {
	ctx := context.Background()
	repo := newStartedRepo(t)
	now := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	setDeadline := func(status draft.Status, deadline time.Time) {
		t.Helper()
		err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
			league, _, err := tx.LockLeague(ctx, LeagueIDDemoDraft)
			if err != nil {
				return err
			}
			league.Status = status
			league.Deadline = &deadline
			return tx.UpdateLeague(ctx, league)
		})
		if err != nil {
			t.Fatalf("update league: %v", err)
		}
	}

	setDeadline(draft.StatusInProgress, now.Add(time.Second))
	if turns, _ := repo.ListOverdue(ctx, now, 10); len(turns) != 0 {
		t.Fatalf("expected no overdue turns before deadline, got %+v", turns)
	}

	setDeadline(draft.StatusInProgress, now)
	turns, _ := repo.ListOverdue(ctx, now, 10)
	if len(turns) != 1 || turns[0].TeamID != "team-garuda" || turns[0].OverallPick != 1 {
		t.Fatalf("unexpected overdue turns: %+v", turns)
	}

	setDeadline(draft.StatusPaused, now.Add(-time.Minute))
	if turns, _ := repo.ListOverdue(ctx, now, 10); len(turns) != 0 {
		t.Fatalf("paused league must not be overdue, got %+v", turns)
	}
}

func TestDraftRepository_Outbox(t *testing.T) {
	ctx := context.Background()
	repo := NewSeededDraftRepository()

	err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		for _, id := range []string{"e1", "e2", "e3"} {
			if err := tx.AppendEvent(ctx, draft.Event{ID: id, LeagueID: LeagueIDDemoDraft, Type: draft.EventPickMade}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append events: %v", err)
	}

	events, _ := repo.ListUnpublishedEvents(ctx, 2)
	if len(events) != 2 || events[0].ID != "e1" || events[1].ID != "e2" {
		t.Fatalf("unexpected first batch: %+v", events)
	}

	if err := repo.MarkEventsPublished(ctx, []string{"e1", "e2"}, time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	events, _ = repo.ListUnpublishedEvents(ctx, 10)
	if len(events) != 1 || events[0].ID != "e3" {
		t.Fatalf("unexpected remaining events: %+v", events)
	}
}

func TestDraftRepository_SnapshotSeesPickWithItsRosterEntry(t *testing.T) {
	ctx := context.Background()
	repo := newStartedRepo(t)

	err := repo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		if err := tx.ClaimPick(ctx, claimOf(1, "idn-fwd-01")); err != nil {
			return err
		}
		if _, err := tx.AppendRosterEntry(ctx, draft.RosterEntry{ID: "r1", LeagueID: LeagueIDDemoDraft, TeamID: "team-garuda", Week: 1, Position: "BENCH", AssetID: "idn-fwd-01"}); err != nil {
			return err
		}

		pending, exists, err := repo.GetSnapshot(ctx, LeagueIDDemoDraft)
		if err != nil || !exists {
			t.Fatalf("snapshot during tx: exists=%v err=%v", exists, err)
		}
		if pending.Picks[0].IsPicked() || len(pending.Entries) != 0 {
			t.Fatalf("uncommitted pick leaked into snapshot: %+v entries=%+v", pending.Picks[0], pending.Entries)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("claim pick: %v", err)
	}

	snapshot, exists, err := repo.GetSnapshot(ctx, LeagueIDDemoDraft)
	if err != nil || !exists {
		t.Fatalf("snapshot: exists=%v err=%v", exists, err)
	}
	if !snapshot.Picks[0].IsPicked() || len(snapshot.Entries) != 1 || snapshot.Entries[0].AssetID != "idn-fwd-01" {
		t.Fatalf("expected committed pick with its roster entry, got pick=%+v entries=%+v", snapshot.Picks[0], snapshot.Entries)
	}
	if len(snapshot.Teams) != 4 || len(snapshot.Assets) != 12 || len(snapshot.Picks) != 8 {
		t.Fatalf("unexpected snapshot sizes: teams=%d assets=%d picks=%d", len(snapshot.Teams), len(snapshot.Assets), len(snapshot.Picks))
	}

	if _, exists, err := repo.GetSnapshot(ctx, "missing"); err != nil || exists {
		t.Fatalf("expected missing league, exists=%v err=%v", exists, err)
	}
}
