package draft

import (
	"strings"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

type OrderMode string

const (
	OrderSnake  OrderMode = "snake"
	OrderLinear OrderMode = "linear"
)

func ParseOrderMode(v string) (OrderMode, bool) {
	switch OrderMode(strings.ToLower(strings.TrimSpace(v))) {
	case OrderSnake:
		return OrderSnake, true
	case OrderLinear:
		return OrderLinear, true
	default:
		return "", false
	}
}

type PickSource string

const (
	SourceManual PickSource = "manual"
	SourceForced PickSource = "forced"
	SourceAuto   PickSource = "auto"
)

// InitialRosterWeek is the week drafted assets are placed into.
const InitialRosterWeek = 1

// League holds the draft configuration of a single league.
type League struct {
	LeagueID        string
	CommissionerID  string
	OrderMode       OrderMode
	Status          Status
	Deadline        *time.Time
	SecondsPerPick  int
	TotalRounds     int
	HoldingPosition string
	UpdatedAt       time.Time
}

func (l League) PickDuration() time.Duration {
	return time.Duration(l.SecondsPerPick) * time.Second
}

type Team struct {
	ID            string
	LeagueID      string
	OwnerUserID   string
	Name          string
	DraftPosition int
}

type Pick struct {
	LeagueID          string
	Round             int
	PickNumberInRound int
	OverallPick       int
	OwnerTeamID       string
	AssetID           string
	PickedAt          *time.Time
	Source            PickSource
}

func (p Pick) IsPicked() bool {
	return p.PickedAt != nil
}

// Asset is an exclusively draftable unit. ProjectedPoints is the ranking
// metric used by auto-pick.
type Asset struct {
	ID              string
	LeagueID        string
	Name            string
	Position        string
	ProjectedPoints float64
}

type RosterEntry struct {
	ID        string
	LeagueID  string
	TeamID    string
	Week      int
	Position  string
	SlotIndex int
	AssetID   string
	CreatedAt time.Time
}

type TeamRoster struct {
	Team    Team
	Entries []RosterEntry
}

// State is the read model returned to clients. CurrentPick is derived from
// Picks on every read.
type State struct {
	League      League
	Picks       []Pick
	CurrentPick *Pick
	Rosters     []TeamRoster
	Available   []Asset
}

// Snapshot is the stored draft of one league, read consistently.
type Snapshot struct {
	League  League
	Teams   []Team
	Picks   []Pick
	Assets  []Asset
	Entries []RosterEntry
}

type OverdueTurn struct {
	LeagueID    string
	TeamID      string
	OverallPick int
	Deadline    time.Time
}
