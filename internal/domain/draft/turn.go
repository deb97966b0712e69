package draft

import "fmt"

// CurrentPick returns the unpicked pick with the smallest OverallPick.
func CurrentPick(picks []Pick) (Pick, bool) {
	var (
		current Pick
		found   bool
	)
	for _, p := range picks {
		if p.IsPicked() {
			continue
		}
		if !found || p.OverallPick < current.OverallPick {
			current = p
			found = true
		}
	}
	return current, found
}

// NextPickForTeam returns the team's own earliest unpicked pick, which may be
// ahead of the global current pick.
func NextPickForTeam(picks []Pick, teamID string) (Pick, bool) {
	var (
		next  Pick
		found bool
	)
	for _, p := range picks {
		if p.IsPicked() || p.OwnerTeamID != teamID {
			continue
		}
		if !found || p.OverallPick < next.OverallPick {
			next = p
			found = true
		}
	}
	return next, found
}

func RemainingPicks(picks []Pick) int {
	remaining := 0
	for _, p := range picks {
		if !p.IsPicked() {
			remaining++
		}
	}
	return remaining
}

// DraftedAssets returns the set of asset ids referenced by filled picks.
func DraftedAssets(picks []Pick) map[string]struct{} {
	out := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		if p.IsPicked() && p.AssetID != "" {
			out[p.AssetID] = struct{}{}
		}
	}
	return out
}

// ValidateTurn checks status and turn ownership for a player-submitted pick
// and returns the pick row the submission targets.
func ValidateTurn(league League, picks []Pick, teamID string) (Pick, error) {
	if err := league.Status.CanPick(); err != nil {
		return Pick{}, err
	}

	current, ok := CurrentPick(picks)
	if !ok {
		return Pick{}, fmt.Errorf("%w: league=%s has no open pick", ErrInvalidState, league.LeagueID)
	}
	if current.OwnerTeamID != teamID {
		return Pick{}, fmt.Errorf("%w: overall pick %d belongs to team=%s", ErrTurnViolation, current.OverallPick, current.OwnerTeamID)
	}

	return current, nil
}

func EnsureAssetAvailable(picks []Pick, assetID string) error {
	if _, taken := DraftedAssets(picks)[assetID]; taken {
		return fmt.Errorf("%w: asset=%s", ErrAssetUnavailable, assetID)
	}
	return nil
}
