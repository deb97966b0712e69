package draft

import (
	"fmt"
	"sort"
)

// GenerateOrder builds the full pick sequence for a league. Teams are ordered
// by DraftPosition, which must run 1..N without gaps.
func GenerateOrder(leagueID string, teams []Team, mode OrderMode, rounds int) ([]Pick, error) {
	if len(teams) == 0 {
		return nil, fmt.Errorf("%w: league=%s has no teams", ErrInvalidSetup, leagueID)
	}
	if rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be >= 1, got %d", ErrInvalidSetup, rounds)
	}
	if mode != OrderSnake && mode != OrderLinear {
		return nil, fmt.Errorf("%w: unknown order mode %q", ErrInvalidSetup, mode)
	}

	ordered := append([]Team(nil), teams...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DraftPosition < ordered[j].DraftPosition
	})
	for i, t := range ordered {
		if t.DraftPosition != i+1 {
			return nil, fmt.Errorf("%w: draft positions must be 1..%d, team=%s has %d", ErrInvalidSetup, len(ordered), t.ID, t.DraftPosition)
		}
	}

	n := len(ordered)
	picks := make([]Pick, 0, rounds*n)
	for round := 1; round <= rounds; round++ {
		for pickInRound := 1; pickInRound <= n; pickInRound++ {
			slot := pickInRound - 1
			if mode == OrderSnake && round%2 == 0 {
				slot = n - pickInRound
			}

			picks = append(picks, Pick{
				LeagueID:          leagueID,
				Round:             round,
				PickNumberInRound: pickInRound,
				OverallPick:       (round-1)*n + pickInRound,
				OwnerTeamID:       ordered[slot].ID,
			})
		}
	}

	return picks, nil
}
