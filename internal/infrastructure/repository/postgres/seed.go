package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo draft league when no league exists yet.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM draft_leagues WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count draft leagues for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	l := memory.SeedDraftLeague()
	leagueSQL, leagueArgs, err := sqlx.Named(`
INSERT INTO draft_leagues (public_id, commissioner_user_id, order_mode, status, seconds_per_pick, total_rounds, holding_position)
VALUES (:public_id, :commissioner_user_id, :order_mode, :status, :seconds_per_pick, :total_rounds, :holding_position)`, map[string]any{
		"public_id":            l.LeagueID,
		"commissioner_user_id": l.CommissionerID,
		"order_mode":           string(l.OrderMode),
		"status":               string(l.Status),
		"seconds_per_pick":     l.SecondsPerPick,
		"total_rounds":         l.TotalRounds,
		"holding_position":     l.HoldingPosition,
	})
	if err != nil {
		return fmt.Errorf("bind seed draft league %s query: %w", l.LeagueID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(leagueSQL), leagueArgs...); err != nil {
		return fmt.Errorf("seed draft league %s: %w", l.LeagueID, err)
	}

	for _, t := range memory.SeedDraftTeams() {
		teamSQL, teamArgs, err := sqlx.Named(`
INSERT INTO draft_teams (public_id, league_public_id, owner_user_id, name, draft_position)
VALUES (:public_id, :league_public_id, :owner_user_id, :name, :draft_position)`, map[string]any{
			"public_id":        t.ID,
			"league_public_id": t.LeagueID,
			"owner_user_id":    t.OwnerUserID,
			"name":             t.Name,
			"draft_position":   t.DraftPosition,
		})
		if err != nil {
			return fmt.Errorf("bind seed draft team %s query: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(teamSQL), teamArgs...); err != nil {
			return fmt.Errorf("seed draft team %s: %w", t.ID, err)
		}
	}

	for _, a := range memory.SeedDraftAssets() {
		assetSQL, assetArgs, err := sqlx.Named(`
INSERT INTO draft_assets (public_id, league_public_id, name, position, projected_points)
VALUES (:public_id, :league_public_id, :name, :position, :projected_points)`, map[string]any{
			"public_id":        a.ID,
			"league_public_id": a.LeagueID,
			"name":             a.Name,
			"position":         a.Position,
			"projected_points": a.ProjectedPoints,
		})
		if err != nil {
			return fmt.Errorf("bind seed draft asset %s query: %w", a.ID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(assetSQL), assetArgs...); err != nil {
			return fmt.Errorf("seed draft asset %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
