package postgres

import (
	"database/sql"
	"time"
)

type draftLeagueTableModel struct {
	PublicID           string     `db:"public_id"`
	CommissionerUserID string     `db:"commissioner_user_id"`
	OrderMode          string     `db:"order_mode"`
	Status             string     `db:"status"`
	PickDeadline       *time.Time `db:"pick_deadline"`
	SecondsPerPick     int        `db:"seconds_per_pick"`
	TotalRounds        int        `db:"total_rounds"`
	HoldingPosition    string     `db:"holding_position"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

type draftTeamTableModel struct {
	PublicID      string `db:"public_id"`
	LeagueID      string `db:"league_public_id"`
	OwnerUserID   string `db:"owner_user_id"`
	Name          string `db:"name"`
	DraftPosition int    `db:"draft_position"`
}

type draftAssetTableModel struct {
	PublicID        string  `db:"public_id"`
	LeagueID        string  `db:"league_public_id"`
	Name            string  `db:"name"`
	Position        string  `db:"position"`
	ProjectedPoints float64 `db:"projected_points"`
}

type draftPickTableModel struct {
	LeagueID          string         `db:"league_public_id"`
	Round             int            `db:"round"`
	PickNumberInRound int            `db:"pick_number_in_round"`
	OverallPick       int            `db:"overall_pick"`
	OwnerTeamID       string         `db:"owner_team_public_id"`
	AssetID           sql.NullString `db:"asset_public_id"`
	PickedAt          *time.Time     `db:"picked_at"`
	Source            sql.NullString `db:"source"`
}

type draftRosterEntryTableModel struct {
	PublicID  string    `db:"public_id"`
	LeagueID  string    `db:"league_public_id"`
	TeamID    string    `db:"team_public_id"`
	Week      int       `db:"week"`
	Position  string    `db:"position"`
	SlotIndex int       `db:"slot_index"`
	AssetID   string    `db:"asset_public_id"`
	CreatedAt time.Time `db:"created_at"`
}

type draftEventTableModel struct {
	PublicID    string     `db:"public_id"`
	LeagueID    string     `db:"league_public_id"`
	EventType   string     `db:"event_type"`
	Payload     string     `db:"payload"`
	OccurredAt  time.Time  `db:"occurred_at"`
	PublishedAt *time.Time `db:"published_at,readonly"`
}

type draftOverdueRow struct {
	LeagueID     string    `db:"league_public_id"`
	PickDeadline time.Time `db:"pick_deadline"`
	OwnerTeamID  string    `db:"owner_team_public_id"`
	OverallPick  int       `db:"overall_pick"`
}
