package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/domain/user"
	idgen "github.com/riskibarqy/fantasy-draft/internal/platform/id"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

type DraftConfig struct {
	DefaultSecondsPerPick int
	MaxSecondsPerPick     int
}

// TurnScheduler is told about every new deadline so an external runner can
// fire AutoPick once it lapses.
type TurnScheduler interface {
	ScheduleTurn(ctx context.Context, turn draft.OverdueTurn) error
}

type noopTurnScheduler struct{}

func (noopTurnScheduler) ScheduleTurn(context.Context, draft.OverdueTurn) error { return nil }

type SubmitPickInput struct {
	LeagueID string
	CallerID string
	AssetID  string
}

type AdminInput struct {
	LeagueID       string
	Actor          user.Principal
	SecondsPerPick int
}

type ForcePickInput struct {
	LeagueID string
	Actor    user.Principal
	TeamID   string
	AssetID  string
}

type AutoPickInput struct {
	LeagueID string
	TeamID   string
	// OverallPick pins the turn the caller was scheduled for. Zero accepts
	// whatever pick the team currently holds.
	OverallPick int
}

// PickResult summarizes one applied pick.
type PickResult struct {
	Pick        draft.Pick
	RosterEntry draft.RosterEntry
	League      draft.League
	NextPick    *draft.Pick
	Completed   bool
}

type DraftService struct {
	draftRepo draft.Repository
	scheduler TurnScheduler
	idGen     idgen.Generator
	cfg       DraftConfig
	logger    *logging.Logger
	now       func() time.Time
}

func NewDraftService(
	draftRepo draft.Repository,
	scheduler TurnScheduler,
	idGen idgen.Generator,
	cfg DraftConfig,
	logger *logging.Logger,
) *DraftService {
	if scheduler == nil {
		scheduler = noopTurnScheduler{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DefaultSecondsPerPick <= 0 {
		cfg.DefaultSecondsPerPick = 90
	}
	if cfg.MaxSecondsPerPick < cfg.DefaultSecondsPerPick {
		cfg.MaxSecondsPerPick = 24 * 60 * 60
	}

	return &DraftService{
		draftRepo: draftRepo,
		scheduler: scheduler,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *DraftService) GetDraftState(ctx context.Context, leagueID string) (draft.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.GetDraftState")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return draft.State{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	snapshot, exists, err := s.draftRepo.GetSnapshot(ctx, leagueID)
	if err != nil {
		return draft.State{}, fmt.Errorf("get draft snapshot: %w", err)
	}
	if !exists {
		return draft.State{}, fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}

	state := draft.State{
		League:    snapshot.League,
		Picks:     snapshot.Picks,
		Rosters:   groupRosters(snapshot.Teams, snapshot.Entries),
		Available: draft.AvailableAssets(snapshot.Assets, snapshot.Picks),
	}
	if current, ok := draft.CurrentPick(snapshot.Picks); ok {
		state.CurrentPick = &current
	}

	return state, nil
}

func (s *DraftService) SubmitPick(ctx context.Context, input SubmitPickInput) (PickResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.SubmitPick")
	defer span.End()

	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.CallerID = strings.TrimSpace(input.CallerID)
	input.AssetID = strings.TrimSpace(input.AssetID)
	if input.LeagueID == "" || input.AssetID == "" {
		return PickResult{}, fmt.Errorf("%w: league id and asset id are required", ErrInvalidInput)
	}
	if input.CallerID == "" {
		return PickResult{}, fmt.Errorf("%w: caller id is required", ErrUnauthorized)
	}

	var result PickResult
	err := s.draftRepo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		league, err := getLeagueTx(ctx, tx, input.LeagueID)
		if err != nil {
			return err
		}

		teams, err := tx.ListTeams(ctx, input.LeagueID)
		if err != nil {
			return fmt.Errorf("list draft teams: %w", err)
		}
		team, ok := teamOwnedBy(teams, input.CallerID)
		if !ok {
			return fmt.Errorf("%w: user=%s has no team in league=%s", ErrForbidden, input.CallerID, input.LeagueID)
		}

		picks, err := tx.ListPicks(ctx, input.LeagueID)
		if err != nil {
			return fmt.Errorf("list draft picks: %w", err)
		}
		target, err := draft.ValidateTurn(league, picks, team.ID)
		if err != nil {
			return err
		}

		asset, err := resolveAsset(ctx, tx, input.LeagueID, input.AssetID, picks)
		if err != nil {
			return err
		}

		result, err = s.execute(ctx, tx, league, target, asset, draft.SourceManual)
		return err
	})
	if err != nil {
		return PickResult{}, err
	}

	s.afterPick(ctx, result)
	return result, nil
}

func (s *DraftService) Start(ctx context.Context, input AdminInput) (draft.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.Start")
	defer span.End()

	seconds := input.SecondsPerPick
	if seconds == 0 {
		seconds = s.cfg.DefaultSecondsPerPick
	}
	if seconds < 1 || seconds > s.cfg.MaxSecondsPerPick {
		return draft.League{}, fmt.Errorf("%w: seconds per pick must be between 1 and %d", ErrInvalidInput, s.cfg.MaxSecondsPerPick)
	}

	var (
		league  draft.League
		current *draft.Pick
	)
	err := s.adminTx(ctx, input, func(ctx context.Context, tx draft.Tx, locked draft.League) error {
		if err := locked.Status.CanStart(); err != nil {
			return err
		}

		picks, err := tx.ListPicks(ctx, locked.LeagueID)
		if err != nil {
			return fmt.Errorf("list draft picks: %w", err)
		}
		if len(picks) == 0 {
			teams, err := tx.ListTeams(ctx, locked.LeagueID)
			if err != nil {
				return fmt.Errorf("list draft teams: %w", err)
			}
			picks, err = draft.GenerateOrder(locked.LeagueID, teams, locked.OrderMode, locked.TotalRounds)
			if err != nil {
				return err
			}
			if err := tx.InsertPicks(ctx, picks); err != nil {
				return fmt.Errorf("insert draft picks: %w", err)
			}
		}

		now := s.now().UTC()
		locked.SecondsPerPick = seconds
		locked.UpdatedAt = now
		if next, ok := draft.CurrentPick(picks); ok {
			deadline := now.Add(locked.PickDuration())
			locked.Status = draft.StatusInProgress
			locked.Deadline = &deadline
			current = &next
		} else {
			locked.Status = draft.StatusCompleted
			locked.Deadline = nil
		}
		if err := tx.UpdateLeague(ctx, locked); err != nil {
			return fmt.Errorf("update draft league: %w", err)
		}
		if err := s.appendEvent(ctx, tx, locked.LeagueID, draft.EventStarted, draft.LeaguePayload(locked), now); err != nil {
			return err
		}

		league = locked
		return nil
	})
	if err != nil {
		return draft.League{}, err
	}

	s.logger.InfoContext(ctx, "draft started", "league_id", league.LeagueID, "seconds_per_pick", league.SecondsPerPick, "status", league.Status)
	s.scheduleCurrent(ctx, league, current)
	return league, nil
}

func (s *DraftService) Pause(ctx context.Context, input AdminInput) (draft.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.Pause")
	defer span.End()

	var league draft.League
	err := s.adminTx(ctx, input, func(ctx context.Context, tx draft.Tx, locked draft.League) error {
		if err := locked.Status.CanPause(); err != nil {
			return err
		}

		now := s.now().UTC()
		locked.Status = draft.StatusPaused
		locked.UpdatedAt = now
		if err := tx.UpdateLeague(ctx, locked); err != nil {
			return fmt.Errorf("update draft league: %w", err)
		}
		if err := s.appendEvent(ctx, tx, locked.LeagueID, draft.EventPaused, draft.LeaguePayload(locked), now); err != nil {
			return err
		}

		league = locked
		return nil
	})
	if err != nil {
		return draft.League{}, err
	}

	s.logger.InfoContext(ctx, "draft paused", "league_id", league.LeagueID)
	return league, nil
}

// Resume grants a full pick window from now. Time left before the pause is
// not carried over.
func (s *DraftService) Resume(ctx context.Context, input AdminInput) (draft.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.Resume")
	defer span.End()

	var (
		league  draft.League
		current *draft.Pick
	)
	err := s.adminTx(ctx, input, func(ctx context.Context, tx draft.Tx, locked draft.League) error {
		if err := locked.Status.CanResume(); err != nil {
			return err
		}

		picks, err := tx.ListPicks(ctx, locked.LeagueID)
		if err != nil {
			return fmt.Errorf("list draft picks: %w", err)
		}
		next, ok := draft.CurrentPick(picks)
		if !ok {
			return fmt.Errorf("%w: league=%s has no open pick to resume", draft.ErrInvalidState, locked.LeagueID)
		}

		now := s.now().UTC()
		deadline := now.Add(locked.PickDuration())
		locked.Status = draft.StatusInProgress
		locked.Deadline = &deadline
		locked.UpdatedAt = now
		if err := tx.UpdateLeague(ctx, locked); err != nil {
			return fmt.Errorf("update draft league: %w", err)
		}
		if err := s.appendEvent(ctx, tx, locked.LeagueID, draft.EventResumed, draft.LeaguePayload(locked), now); err != nil {
			return err
		}

		league = locked
		current = &next
		return nil
	})
	if err != nil {
		return draft.League{}, err
	}

	s.logger.InfoContext(ctx, "draft resumed", "league_id", league.LeagueID, "deadline", league.Deadline)
	s.scheduleCurrent(ctx, league, current)
	return league, nil
}

// ForcePick applies an asset to the team's own earliest open pick, even when
// other teams still have earlier picks open.
func (s *DraftService) ForcePick(ctx context.Context, input ForcePickInput) (PickResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.ForcePick")
	defer span.End()

	input.TeamID = strings.TrimSpace(input.TeamID)
	input.AssetID = strings.TrimSpace(input.AssetID)
	if input.TeamID == "" || input.AssetID == "" {
		return PickResult{}, fmt.Errorf("%w: team id and asset id are required", ErrInvalidInput)
	}

	var result PickResult
	err := s.draftRepo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		league, err := getLeagueTx(ctx, tx, strings.TrimSpace(input.LeagueID))
		if err != nil {
			return err
		}
		if err := authorizeCommissioner(league, input.Actor); err != nil {
			return err
		}
		if league.Status != draft.StatusInProgress && league.Status != draft.StatusPaused {
			return fmt.Errorf("%w: cannot force pick while draft is %s", draft.ErrInvalidState, league.Status)
		}

		target, picks, err := nextPickForTeamTx(ctx, tx, league.LeagueID, input.TeamID)
		if err != nil {
			return err
		}

		asset, err := resolveAsset(ctx, tx, league.LeagueID, input.AssetID, picks)
		if err != nil {
			return err
		}

		result, err = s.execute(ctx, tx, league, target, asset, draft.SourceForced)
		return err
	})
	if err != nil {
		return PickResult{}, err
	}

	s.logger.InfoContext(ctx, "draft pick forced",
		"league_id", result.Pick.LeagueID,
		"team_id", result.Pick.OwnerTeamID,
		"overall_pick", result.Pick.OverallPick,
		"actor_id", input.Actor.UserID,
	)
	s.afterPick(ctx, result)
	return result, nil
}

// AutoPick fills the team's earliest open pick with the best available asset.
// The pick must be the one on the clock, so a repeated call after success
// returns draft.ErrNoPicksRemaining instead of reaching the team's later pick.
func (s *DraftService) AutoPick(ctx context.Context, input AutoPickInput) (PickResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.AutoPick")
	defer span.End()

	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.LeagueID == "" || input.TeamID == "" {
		return PickResult{}, fmt.Errorf("%w: league id and team id are required", ErrInvalidInput)
	}

	var result PickResult
	err := s.draftRepo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		league, err := getLeagueTx(ctx, tx, input.LeagueID)
		if err != nil {
			return err
		}
		if err := league.Status.CanPick(); err != nil {
			return err
		}

		target, picks, err := nextPickForTeamTx(ctx, tx, league.LeagueID, input.TeamID)
		if err != nil {
			return err
		}
		if current, ok := draft.CurrentPick(picks); !ok || current.OverallPick != target.OverallPick {
			return fmt.Errorf("%w: team=%s is not on the clock in league=%s", draft.ErrNoPicksRemaining, input.TeamID, league.LeagueID)
		}
		if input.OverallPick > 0 && input.OverallPick != target.OverallPick {
			return fmt.Errorf("%w: pick %d for team=%s was already made", draft.ErrNoPicksRemaining, input.OverallPick, input.TeamID)
		}

		assets, err := tx.ListAssets(ctx, league.LeagueID)
		if err != nil {
			return fmt.Errorf("list draft assets: %w", err)
		}
		asset, ok := draft.SelectBestAvailable(assets, picks)
		if !ok {
			return fmt.Errorf("%w: league=%s has no undrafted assets", draft.ErrAssetUnavailable, league.LeagueID)
		}

		result, err = s.execute(ctx, tx, league, target, asset, draft.SourceAuto)
		return err
	})
	if err != nil {
		return PickResult{}, err
	}

	s.logger.InfoContext(ctx, "draft auto pick applied",
		"league_id", result.Pick.LeagueID,
		"team_id", result.Pick.OwnerTeamID,
		"overall_pick", result.Pick.OverallPick,
		"asset_id", result.Pick.AssetID,
	)
	s.afterPick(ctx, result)
	return result, nil
}

// IsOverdue reports whether the team holds the current pick and its deadline
// has passed. Paused drafts are never overdue.
func (s *DraftService) IsOverdue(ctx context.Context, leagueID, teamID string) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.IsOverdue")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	teamID = strings.TrimSpace(teamID)

	league, exists, err := s.draftRepo.GetLeague(ctx, leagueID)
	if err != nil {
		return false, fmt.Errorf("get draft league: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}

	teams, err := s.draftRepo.ListTeams(ctx, leagueID)
	if err != nil {
		return false, fmt.Errorf("list draft teams: %w", err)
	}
	if _, ok := teamByID(teams, teamID); !ok {
		return false, fmt.Errorf("%w: team=%s in league=%s", ErrNotFound, teamID, leagueID)
	}

	if league.Status != draft.StatusInProgress || league.Deadline == nil {
		return false, nil
	}
	if s.now().Before(*league.Deadline) {
		return false, nil
	}

	picks, err := s.draftRepo.ListPicks(ctx, leagueID)
	if err != nil {
		return false, fmt.Errorf("list draft picks: %w", err)
	}
	current, ok := draft.CurrentPick(picks)
	return ok && current.OwnerTeamID == teamID, nil
}

func (s *DraftService) ListOverdueTurns(ctx context.Context, limit int) ([]draft.OverdueTurn, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DraftService.ListOverdueTurns")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	turns, err := s.draftRepo.ListOverdue(ctx, s.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue turns: %w", err)
	}
	return turns, nil
}

func (s *DraftService) adminTx(
	ctx context.Context,
	input AdminInput,
	fn func(ctx context.Context, tx draft.Tx, locked draft.League) error,
) error {
	leagueID := strings.TrimSpace(input.LeagueID)
	if leagueID == "" {
		return fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	return s.draftRepo.WithinTx(ctx, func(ctx context.Context, tx draft.Tx) error {
		locked, exists, err := tx.LockLeague(ctx, leagueID)
		if err != nil {
			return fmt.Errorf("lock draft league: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
		}
		if err := authorizeCommissioner(locked, input.Actor); err != nil {
			return err
		}
		return fn(ctx, tx, locked)
	})
}

func (s *DraftService) appendEvent(ctx context.Context, tx draft.Tx, leagueID string, eventType draft.EventType, payload map[string]any, at time.Time) error {
	eventID, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	if err := tx.AppendEvent(ctx, draft.Event{
		ID:         eventID,
		LeagueID:   leagueID,
		Type:       eventType,
		Payload:    payload,
		OccurredAt: at,
	}); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}

func (s *DraftService) afterPick(ctx context.Context, result PickResult) {
	if result.Completed {
		s.logger.InfoContext(ctx, "draft completed", "league_id", result.League.LeagueID)
		return
	}
	s.scheduleCurrent(ctx, result.League, result.NextPick)
}

// scheduleCurrent runs after commit. A failure leaves the committed state
// alone; sweepers still find the turn through ListOverdueTurns.
func (s *DraftService) scheduleCurrent(ctx context.Context, league draft.League, current *draft.Pick) {
	if current == nil || league.Status != draft.StatusInProgress || league.Deadline == nil {
		return
	}

	err := s.scheduler.ScheduleTurn(ctx, draft.OverdueTurn{
		LeagueID:    league.LeagueID,
		TeamID:      current.OwnerTeamID,
		OverallPick: current.OverallPick,
		Deadline:    *league.Deadline,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "schedule draft turn failed",
			"league_id", league.LeagueID,
			"overall_pick", current.OverallPick,
			"error", err,
		)
	}
}

func getLeagueTx(ctx context.Context, tx draft.Tx, leagueID string) (draft.League, error) {
	if leagueID == "" {
		return draft.League{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	league, exists, err := tx.GetLeague(ctx, leagueID)
	if err != nil {
		return draft.League{}, fmt.Errorf("get draft league: %w", err)
	}
	if !exists {
		return draft.League{}, fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}
	return league, nil
}

func nextPickForTeamTx(ctx context.Context, tx draft.Tx, leagueID, teamID string) (draft.Pick, []draft.Pick, error) {
	teams, err := tx.ListTeams(ctx, leagueID)
	if err != nil {
		return draft.Pick{}, nil, fmt.Errorf("list draft teams: %w", err)
	}
	if _, ok := teamByID(teams, teamID); !ok {
		return draft.Pick{}, nil, fmt.Errorf("%w: team=%s in league=%s", ErrNotFound, teamID, leagueID)
	}

	picks, err := tx.ListPicks(ctx, leagueID)
	if err != nil {
		return draft.Pick{}, nil, fmt.Errorf("list draft picks: %w", err)
	}
	target, ok := draft.NextPickForTeam(picks, teamID)
	if !ok {
		return draft.Pick{}, nil, fmt.Errorf("%w: team=%s", draft.ErrNoPicksRemaining, teamID)
	}
	return target, picks, nil
}

func resolveAsset(ctx context.Context, tx draft.Tx, leagueID, assetID string, picks []draft.Pick) (draft.Asset, error) {
	asset, exists, err := tx.GetAsset(ctx, leagueID, assetID)
	if err != nil {
		return draft.Asset{}, fmt.Errorf("get draft asset: %w", err)
	}
	if !exists {
		return draft.Asset{}, fmt.Errorf("%w: asset=%s in league=%s", ErrNotFound, assetID, leagueID)
	}
	if err := draft.EnsureAssetAvailable(picks, asset.ID); err != nil {
		return draft.Asset{}, err
	}
	return asset, nil
}

func authorizeCommissioner(league draft.League, actor user.Principal) error {
	if actor.HasRole(user.RoleAdmin) {
		return nil
	}
	if actor.UserID != "" && actor.UserID == league.CommissionerID {
		return nil
	}
	return fmt.Errorf("%w: user=%s cannot administer draft for league=%s", ErrForbidden, actor.UserID, league.LeagueID)
}

func teamOwnedBy(teams []draft.Team, userID string) (draft.Team, bool) {
	for _, t := range teams {
		if t.OwnerUserID == userID {
			return t, true
		}
	}
	return draft.Team{}, false
}

func teamByID(teams []draft.Team, teamID string) (draft.Team, bool) {
	for _, t := range teams {
		if t.ID == teamID {
			return t, true
		}
	}
	return draft.Team{}, false
}

func groupRosters(teams []draft.Team, entries []draft.RosterEntry) []draft.TeamRoster {
	ordered := append([]draft.Team(nil), teams...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DraftPosition < ordered[j].DraftPosition
	})

	byTeam := make(map[string][]draft.RosterEntry, len(ordered))
	for _, e := range entries {
		byTeam[e.TeamID] = append(byTeam[e.TeamID], e)
	}

	out := make([]draft.TeamRoster, 0, len(ordered))
	for _, t := range ordered {
		items := byTeam[t.ID]
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Week != items[j].Week {
				return items[i].Week < items[j].Week
			}
			if items[i].Position != items[j].Position {
				return items[i].Position < items[j].Position
			}
			return items[i].SlotIndex < items[j].SlotIndex
		})
		out = append(out, draft.TeamRoster{Team: t, Entries: items})
	}
	return out
}
