package httpapi

import (
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/usecase"
)

type submitPickRequest struct {
	AssetID string `json:"asset_id" validate:"required,max=128"`
}

type startDraftRequest struct {
	SecondsPerPick int `json:"seconds_per_pick" validate:"omitempty,min=1"`
}

type forcePickRequest struct {
	TeamID  string `json:"team_id" validate:"required,max=128"`
	AssetID string `json:"asset_id" validate:"required,max=128"`
}

type draftAutoPickJobRequest struct {
	LeagueID    string `json:"league_id" validate:"required"`
	TeamID      string `json:"team_id" validate:"required"`
	OverallPick int    `json:"overall_pick" validate:"omitempty,min=1"`
	DispatchID  string `json:"dispatch_id" validate:"omitempty,max=256"`
}

type draftLeagueDTO struct {
	LeagueID       string     `json:"league_id"`
	CommissionerID string     `json:"commissioner_id"`
	OrderMode      string     `json:"order_mode"`
	Status         string     `json:"status"`
	Deadline       *time.Time `json:"deadline"`
	SecondsPerPick int        `json:"seconds_per_pick"`
	TotalRounds    int        `json:"total_rounds"`
}

type draftPickDTO struct {
	Round             int        `json:"round"`
	PickNumberInRound int        `json:"pick_number_in_round"`
	OverallPick       int        `json:"overall_pick"`
	TeamID            string     `json:"team_id"`
	AssetID           string     `json:"asset_id,omitempty"`
	PickedAt          *time.Time `json:"picked_at,omitempty"`
	Source            string     `json:"source,omitempty"`
}

type draftRosterEntryDTO struct {
	ID        string `json:"id"`
	AssetID   string `json:"asset_id"`
	Week      int    `json:"week"`
	Position  string `json:"position"`
	SlotIndex int    `json:"slot_index"`
}

type draftTeamRosterDTO struct {
	TeamID        string                `json:"team_id"`
	Name          string                `json:"name"`
	OwnerUserID   string                `json:"owner_user_id"`
	DraftPosition int                   `json:"draft_position"`
	Entries       []draftRosterEntryDTO `json:"entries"`
}

type draftAssetDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Position        string  `json:"position"`
	ProjectedPoints float64 `json:"projected_points"`
}

type draftStateDTO struct {
	League      draftLeagueDTO       `json:"league"`
	Picks       []draftPickDTO       `json:"picks"`
	CurrentPick *draftPickDTO        `json:"current_pick"`
	Rosters     []draftTeamRosterDTO `json:"rosters"`
	Available   []draftAssetDTO      `json:"available_assets"`
}

type pickResultDTO struct {
	Pick        draftPickDTO        `json:"pick"`
	RosterEntry draftRosterEntryDTO `json:"roster_entry"`
	NextPick    *draftPickDTO       `json:"next_pick"`
	Deadline    *time.Time          `json:"deadline"`
	Status      string              `json:"status"`
	Completed   bool                `json:"completed"`
}

type overdueDTO struct {
	LeagueID string `json:"league_id"`
	TeamID   string `json:"team_id"`
	Overdue  bool   `json:"overdue"`
}

func draftLeagueToDTO(v draft.League) draftLeagueDTO {
	return draftLeagueDTO{
		LeagueID:       v.LeagueID,
		CommissionerID: v.CommissionerID,
		OrderMode:      string(v.OrderMode),
		Status:         string(v.Status),
		Deadline:       utcTimePtr(v.Deadline),
		SecondsPerPick: v.SecondsPerPick,
		TotalRounds:    v.TotalRounds,
	}
}

func draftPickToDTO(v draft.Pick) draftPickDTO {
	return draftPickDTO{
		Round:             v.Round,
		PickNumberInRound: v.PickNumberInRound,
		OverallPick:       v.OverallPick,
		TeamID:            v.OwnerTeamID,
		AssetID:           v.AssetID,
		PickedAt:          utcTimePtr(v.PickedAt),
		Source:            string(v.Source),
	}
}

func draftPickPtrToDTO(v *draft.Pick) *draftPickDTO {
	if v == nil {
		return nil
	}
	out := draftPickToDTO(*v)
	return &out
}

func rosterEntryToDTO(v draft.RosterEntry) draftRosterEntryDTO {
	return draftRosterEntryDTO{
		ID:        v.ID,
		AssetID:   v.AssetID,
		Week:      v.Week,
		Position:  v.Position,
		SlotIndex: v.SlotIndex,
	}
}

func draftStateToDTO(v draft.State) draftStateDTO {
	picks := make([]draftPickDTO, 0, len(v.Picks))
	for _, p := range v.Picks {
		picks = append(picks, draftPickToDTO(p))
	}

	rosters := make([]draftTeamRosterDTO, 0, len(v.Rosters))
	for _, r := range v.Rosters {
		entries := make([]draftRosterEntryDTO, 0, len(r.Entries))
		for _, e := range r.Entries {
			entries = append(entries, rosterEntryToDTO(e))
		}
		rosters = append(rosters, draftTeamRosterDTO{
			TeamID:        r.Team.ID,
			Name:          r.Team.Name,
			OwnerUserID:   r.Team.OwnerUserID,
			DraftPosition: r.Team.DraftPosition,
			Entries:       entries,
		})
	}

	available := make([]draftAssetDTO, 0, len(v.Available))
	for _, a := range v.Available {
		available = append(available, draftAssetDTO{
			ID:              a.ID,
			Name:            a.Name,
			Position:        a.Position,
			ProjectedPoints: a.ProjectedPoints,
		})
	}

	return draftStateDTO{
		League:      draftLeagueToDTO(v.League),
		Picks:       picks,
		CurrentPick: draftPickPtrToDTO(v.CurrentPick),
		Rosters:     rosters,
		Available:   available,
	}
}

func pickResultToDTO(v usecase.PickResult) pickResultDTO {
	return pickResultDTO{
		Pick:        draftPickToDTO(v.Pick),
		RosterEntry: rosterEntryToDTO(v.RosterEntry),
		NextPick:    draftPickPtrToDTO(v.NextPick),
		Deadline:    utcTimePtr(v.League.Deadline),
		Status:      string(v.League.Status),
		Completed:   v.Completed,
	}
}

func utcTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := v.UTC()
	return &out
}
