package draft

import (
	"context"
	"time"
)

type Repository interface {
	GetLeague(ctx context.Context, leagueID string) (League, bool, error)
	ListTeams(ctx context.Context, leagueID string) ([]Team, error)
	ListPicks(ctx context.Context, leagueID string) ([]Pick, error)
	// GetSnapshot reads the league together with its teams, picks, assets and
	// roster entries as of one point in time.
	GetSnapshot(ctx context.Context, leagueID string) (Snapshot, bool, error)
	// ListOverdue returns in-progress leagues whose deadline is at or before
	// now, paired with the owner of the current pick.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]OverdueTurn, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is a unit of work. Reads observe the transaction's own writes. Nothing is
// visible to other callers until WithinTx returns nil.
type Tx interface {
	GetLeague(ctx context.Context, leagueID string) (League, bool, error)
	// LockLeague reads the league row and holds it until the transaction ends.
	LockLeague(ctx context.Context, leagueID string) (League, bool, error)
	ListTeams(ctx context.Context, leagueID string) ([]Team, error)
	ListPicks(ctx context.Context, leagueID string) ([]Pick, error)
	ListAssets(ctx context.Context, leagueID string) ([]Asset, error)
	GetAsset(ctx context.Context, leagueID, assetID string) (Asset, bool, error)
	// InsertPicks stores generated picks. Rows that already exist are left alone.
	InsertPicks(ctx context.Context, picks []Pick) error
	UpdateLeague(ctx context.Context, league League) error
	// ClaimPick fills an unpicked row. It returns ErrConcurrencyConflict when the
	// row was already filled and ErrAssetUnavailable when the asset is taken.
	ClaimPick(ctx context.Context, pick Pick) error
	// AppendRosterEntry assigns the next SlotIndex for the entry's team, week
	// and position, and returns the stored entry.
	AppendRosterEntry(ctx context.Context, entry RosterEntry) (RosterEntry, error)
	AppendEvent(ctx context.Context, event Event) error
}

type EventOutbox interface {
	ListUnpublishedEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventsPublished(ctx context.Context, eventIDs []string, publishedAt time.Time) error
}
