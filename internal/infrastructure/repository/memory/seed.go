package memory

import (
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
)

const (
	LeagueIDDemoDraft   = "demo-draft-2026"
	DemoCommissionerID  = "user-commissioner"
	DemoHoldingPosition = "BENCH"
)

func SeedDraftLeague() draft.League {
	return draft.League{
		LeagueID:        LeagueIDDemoDraft,
		CommissionerID:  DemoCommissionerID,
		OrderMode:       draft.OrderSnake,
		Status:          draft.StatusNotStarted,
		SecondsPerPick:  90,
		TotalRounds:     2,
		HoldingPosition: DemoHoldingPosition,
		UpdatedAt:       time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	}
}

func SeedDraftTeams() []draft.Team {
	return []draft.Team{
		{ID: "team-garuda", LeagueID: LeagueIDDemoDraft, OwnerUserID: "user-garuda", Name: "Garuda FC", DraftPosition: 1},
		{ID: "team-macan", LeagueID: LeagueIDDemoDraft, OwnerUserID: "user-macan", Name: "Macan Kemayoran", DraftPosition: 2},
		{ID: "team-bajul", LeagueID: LeagueIDDemoDraft, OwnerUserID: "user-bajul", Name: "Bajul Ijo", DraftPosition: 3},
		{ID: "team-serdadu", LeagueID: LeagueIDDemoDraft, OwnerUserID: "user-serdadu", Name: "Serdadu Tridatu", DraftPosition: 4},
	}
}

func SeedDraftAssets() []draft.Asset {
	return []draft.Asset{
		{ID: "idn-fwd-01", LeagueID: LeagueIDDemoDraft, Name: "Gustavo Almeida", Position: "FWD", ProjectedPoints: 182.5},
		{ID: "idn-fwd-02", LeagueID: LeagueIDDemoDraft, Name: "David da Silva", Position: "FWD", ProjectedPoints: 176},
		{ID: "idn-mid-01", LeagueID: LeagueIDDemoDraft, Name: "Maciej Gajos", Position: "MID", ProjectedPoints: 161},
		{ID: "idn-mid-02", LeagueID: LeagueIDDemoDraft, Name: "Marc Klok", Position: "MID", ProjectedPoints: 161},
		{ID: "idn-mid-03", LeagueID: LeagueIDDemoDraft, Name: "Bruno Moreira", Position: "MID", ProjectedPoints: 149.5},
		{ID: "idn-mid-04", LeagueID: LeagueIDDemoDraft, Name: "Eber Bessa", Position: "MID", ProjectedPoints: 152},
		{ID: "idn-def-01", LeagueID: LeagueIDDemoDraft, Name: "Hansamu Yama", Position: "DEF", ProjectedPoints: 118},
		{ID: "idn-def-02", LeagueID: LeagueIDDemoDraft, Name: "Nick Kuipers", Position: "DEF", ProjectedPoints: 124},
		{ID: "idn-def-03", LeagueID: LeagueIDDemoDraft, Name: "Dusan Stevanovic", Position: "DEF", ProjectedPoints: 111},
		{ID: "idn-def-04", LeagueID: LeagueIDDemoDraft, Name: "Ricky Fajrin", Position: "DEF", ProjectedPoints: 104},
		{ID: "idn-gk-01", LeagueID: LeagueIDDemoDraft, Name: "Andritany Ardhiyasa", Position: "GK", ProjectedPoints: 97},
		{ID: "idn-gk-02", LeagueID: LeagueIDDemoDraft, Name: "Teja Paku Alam", Position: "GK", ProjectedPoints: 101},
	}
}

// NewSeededDraftRepository returns a repository holding the demo league.
func NewSeededDraftRepository() *DraftRepository {
	repo := NewDraftRepository()
	repo.AddLeague(SeedDraftLeague(), SeedDraftTeams(), SeedDraftAssets())
	return repo
}
