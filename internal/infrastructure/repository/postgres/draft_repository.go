package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	qb "github.com/riskibarqy/fantasy-draft/internal/platform/querybuilder"
)

const pickAssetUniqueIndex = "draft_picks_league_asset_uidx"

var (
	draftLeagueColumns      = qb.ColumnsOf(draftLeagueTableModel{})
	draftTeamColumns        = qb.ColumnsOf(draftTeamTableModel{})
	draftAssetColumns       = qb.ColumnsOf(draftAssetTableModel{})
	draftPickColumns        = qb.ColumnsOf(draftPickTableModel{})
	draftRosterEntryColumns = qb.ColumnsOf(draftRosterEntryTableModel{})
)

// dbtx is the subset shared by *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type DraftRepository struct {
	db *sqlx.DB
}

func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) GetLeague(ctx context.Context, leagueID string) (draft.League, bool, error) {
	return getDraftLeague(ctx, r.db, leagueID, false)
}

func (r *DraftRepository) ListTeams(ctx context.Context, leagueID string) ([]draft.Team, error) {
	return listDraftTeams(ctx, r.db, leagueID)
}

func (r *DraftRepository) ListPicks(ctx context.Context, leagueID string) ([]draft.Pick, error) {
	return listDraftPicks(ctx, r.db, leagueID)
}

// GetSnapshot reads everything in one repeatable-read transaction so a pick
// committed between statements cannot show up without its roster entry.
func (r *DraftRepository) GetSnapshot(ctx context.Context, leagueID string) (draft.Snapshot, bool, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return draft.Snapshot{}, false, fmt.Errorf("begin draft snapshot tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	league, exists, err := getDraftLeague(ctx, tx, leagueID, false)
	if err != nil || !exists {
		return draft.Snapshot{}, false, err
	}
	snapshot := draft.Snapshot{League: league}
	if snapshot.Teams, err = listDraftTeams(ctx, tx, leagueID); err != nil {
		return draft.Snapshot{}, false, err
	}
	if snapshot.Picks, err = listDraftPicks(ctx, tx, leagueID); err != nil {
		return draft.Snapshot{}, false, err
	}
	if snapshot.Assets, err = listDraftAssets(ctx, tx, leagueID); err != nil {
		return draft.Snapshot{}, false, err
	}
	if snapshot.Entries, err = listRosterEntries(ctx, tx, leagueID); err != nil {
		return draft.Snapshot{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return draft.Snapshot{}, false, fmt.Errorf("commit draft snapshot tx: %w", err)
	}
	return snapshot, true, nil
}

func (r *DraftRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]draft.OverdueTurn, error) {
	const query = `
SELECT l.public_id AS league_public_id, l.pick_deadline, p.owner_team_public_id, p.overall_pick
FROM draft_leagues l
JOIN LATERAL (
    SELECT owner_team_public_id, overall_pick
    FROM draft_picks
    WHERE league_public_id = l.public_id
      AND picked_at IS NULL
    ORDER BY overall_pick
    LIMIT 1
) p ON TRUE
WHERE l.status = 'in_progress'
  AND l.pick_deadline <= $1
  AND l.deleted_at IS NULL
ORDER BY l.pick_deadline, l.public_id
LIMIT $2`

	var rows []draftOverdueRow
	if err := r.db.SelectContext(ctx, &rows, query, now.UTC(), limit); err != nil {
		return nil, fmt.Errorf("select overdue draft turns: %w", err)
	}

	out := make([]draft.OverdueTurn, 0, len(rows))
	for _, row := range rows {
		out = append(out, draft.OverdueTurn{
			LeagueID:    row.LeagueID,
			TeamID:      row.OwnerTeamID,
			OverallPick: row.OverallPick,
			Deadline:    row.PickDeadline,
		})
	}
	return out, nil
}

func (r *DraftRepository) ListUnpublishedEvents(ctx context.Context, limit int) ([]draft.Event, error) {
	query, args, err := qb.Select("public_id", "league_public_id", "event_type", "payload::text AS payload", "occurred_at", "published_at").
		From("draft_events").
		Where(qb.IsNull("published_at")).
		OrderBy("id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select unpublished events query: %w", err)
	}

	var rows []draftEventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select unpublished events: %w", err)
	}

	out := make([]draft.Event, 0, len(rows))
	for _, row := range rows {
		payload := map[string]any{}
		if strings.TrimSpace(row.Payload) != "" {
			if err := jsoniter.UnmarshalFromString(row.Payload, &payload); err != nil {
				return nil, fmt.Errorf("decode event payload id=%s: %w", row.PublicID, err)
			}
		}
		out = append(out, draft.Event{
			ID:          row.PublicID,
			LeagueID:    row.LeagueID,
			Type:        draft.EventType(row.EventType),
			Payload:     payload,
			OccurredAt:  row.OccurredAt,
			PublishedAt: row.PublishedAt,
		})
	}
	return out, nil
}

func (r *DraftRepository) MarkEventsPublished(ctx context.Context, eventIDs []string, publishedAt time.Time) error {
	if len(eventIDs) == 0 {
		return nil
	}

	ids := make([]any, 0, len(eventIDs))
	for _, id := range eventIDs {
		ids = append(ids, id)
	}
	query, args, err := qb.Update("draft_events").
		Set("published_at", publishedAt.UTC()).
		Where(qb.In("public_id", ids), qb.IsNull("published_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark events published query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark %d events published: %w", len(eventIDs), err)
	}
	return nil
}

func (r *DraftRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx draft.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin draft tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &draftTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit draft tx: %w", err)
	}
	return nil
}

type draftTx struct {
	tx *sqlx.Tx
}

func (t *draftTx) GetLeague(ctx context.Context, leagueID string) (draft.League, bool, error) {
	return getDraftLeague(ctx, t.tx, leagueID, false)
}

func (t *draftTx) LockLeague(ctx context.Context, leagueID string) (draft.League, bool, error) {
	return getDraftLeague(ctx, t.tx, leagueID, true)
}

func (t *draftTx) ListTeams(ctx context.Context, leagueID string) ([]draft.Team, error) {
	return listDraftTeams(ctx, t.tx, leagueID)
}

func (t *draftTx) ListPicks(ctx context.Context, leagueID string) ([]draft.Pick, error) {
	return listDraftPicks(ctx, t.tx, leagueID)
}

func (t *draftTx) ListAssets(ctx context.Context, leagueID string) ([]draft.Asset, error) {
	return listDraftAssets(ctx, t.tx, leagueID)
}

func (t *draftTx) GetAsset(ctx context.Context, leagueID, assetID string) (draft.Asset, bool, error) {
	query, args, err := qb.Select(draftAssetColumns...).
		From("draft_assets").
		Where(qb.Eq("league_public_id", leagueID), qb.Eq("public_id", assetID), qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return draft.Asset{}, false, fmt.Errorf("build select draft asset query: %w", err)
	}

	var row draftAssetTableModel
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return draft.Asset{}, false, nil
		}
		return draft.Asset{}, false, fmt.Errorf("get draft asset=%s: %w", assetID, err)
	}
	return assetFromRow(row), true, nil
}

func (t *draftTx) InsertPicks(ctx context.Context, picks []draft.Pick) error {
	if len(picks) == 0 {
		return nil
	}

	builder := qb.InsertInto("draft_picks").
		Columns("league_public_id", "round", "pick_number_in_round", "overall_pick", "owner_team_public_id").
		Suffix("ON CONFLICT (league_public_id, overall_pick) DO NOTHING")
	for _, p := range picks {
		builder.Values(p.LeagueID, p.Round, p.PickNumberInRound, p.OverallPick, p.OwnerTeamID)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert draft picks query: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %d draft picks: %w", len(picks), err)
	}
	return nil
}

func (t *draftTx) UpdateLeague(ctx context.Context, league draft.League) error {
	query, args, err := qb.Update("draft_leagues").
		Set("status", string(league.Status)).
		Set("pick_deadline", league.Deadline).
		Set("seconds_per_pick", league.SecondsPerPick).
		Set("updated_at", league.UpdatedAt.UTC()).
		Where(qb.Eq("public_id", league.LeagueID), qb.IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update draft league query: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update draft league=%s: %w", league.LeagueID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update draft league=%s: no row updated", league.LeagueID)
	}
	return nil
}

// ClaimPick is a compare-and-set on picked_at. A concurrent claim on the same
// row waits for the other transaction and then matches zero rows.
func (t *draftTx) ClaimPick(ctx context.Context, pick draft.Pick) error {
	query, args, err := qb.Update("draft_picks").
		Set("asset_public_id", pick.AssetID).
		Set("picked_at", pick.PickedAt).
		Set("source", string(pick.Source)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("league_public_id", pick.LeagueID),
			qb.Eq("overall_pick", pick.OverallPick),
			qb.IsNull("picked_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build claim pick query: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, pickAssetUniqueIndex) {
			return fmt.Errorf("%w: asset=%s", draft.ErrAssetUnavailable, pick.AssetID)
		}
		return fmt.Errorf("claim pick overall=%d: %w", pick.OverallPick, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim pick rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: overall pick %d already filled", draft.ErrConcurrencyConflict, pick.OverallPick)
	}
	return nil
}

// AppendRosterEntry serializes slot assignment per (league, team, week,
// position) with a transaction-scoped advisory lock.
func (t *draftTx) AppendRosterEntry(ctx context.Context, entry draft.RosterEntry) (draft.RosterEntry, error) {
	lockKey := strings.Join([]string{"draft_roster", entry.LeagueID, entry.TeamID, strconv.Itoa(entry.Week), entry.Position}, ":")
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return draft.RosterEntry{}, fmt.Errorf("lock roster slot key=%s: %w", lockKey, err)
	}

	const nextSlotQuery = `
SELECT COALESCE(MAX(slot_index) + 1, 0)
FROM draft_roster_entries
WHERE league_public_id = $1
  AND team_public_id = $2
  AND week = $3
  AND position = $4
  AND deleted_at IS NULL`
	var slot int
	if err := t.tx.GetContext(ctx, &slot, nextSlotQuery, entry.LeagueID, entry.TeamID, entry.Week, entry.Position); err != nil {
		return draft.RosterEntry{}, fmt.Errorf("read next roster slot: %w", err)
	}
	entry.SlotIndex = slot

	query, args, err := qb.InsertModel("draft_roster_entries", draftRosterEntryTableModel{
		PublicID:  entry.ID,
		LeagueID:  entry.LeagueID,
		TeamID:    entry.TeamID,
		Week:      entry.Week,
		Position:  entry.Position,
		SlotIndex: entry.SlotIndex,
		AssetID:   entry.AssetID,
		CreatedAt: entry.CreatedAt.UTC(),
	}, "")
	if err != nil {
		return draft.RosterEntry{}, fmt.Errorf("build insert roster entry query: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return draft.RosterEntry{}, fmt.Errorf("insert roster entry team=%s: %w", entry.TeamID, err)
	}
	return entry, nil
}

func (t *draftTx) AppendEvent(ctx context.Context, event draft.Event) error {
	payload, err := marshalPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	query, args, err := qb.InsertModel("draft_events", draftEventTableModel{
		PublicID:   event.ID,
		LeagueID:   event.LeagueID,
		EventType:  string(event.Type),
		Payload:    payload,
		OccurredAt: event.OccurredAt.UTC(),
	}, "")
	if err != nil {
		return fmt.Errorf("build insert draft event query: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert draft event type=%s: %w", event.Type, err)
	}
	return nil
}

func getDraftLeague(ctx context.Context, q dbtx, leagueID string, forUpdate bool) (draft.League, bool, error) {
	builder := qb.Select(draftLeagueColumns...).
		From("draft_leagues").
		Where(qb.Eq("public_id", leagueID), qb.IsNull("deleted_at"))
	if forUpdate {
		builder.ForUpdate()
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return draft.League{}, false, fmt.Errorf("build select draft league query: %w", err)
	}

	var row draftLeagueTableModel
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return draft.League{}, false, nil
		}
		return draft.League{}, false, fmt.Errorf("get draft league=%s: %w", leagueID, err)
	}

	mode, ok := draft.ParseOrderMode(row.OrderMode)
	if !ok {
		return draft.League{}, false, fmt.Errorf("draft league=%s has unknown order mode %q", leagueID, row.OrderMode)
	}
	status := draft.Status(row.Status)
	if !status.Valid() {
		return draft.League{}, false, fmt.Errorf("draft league=%s has unknown status %q", leagueID, row.Status)
	}

	return draft.League{
		LeagueID:        row.PublicID,
		CommissionerID:  row.CommissionerUserID,
		OrderMode:       mode,
		Status:          status,
		Deadline:        row.PickDeadline,
		SecondsPerPick:  row.SecondsPerPick,
		TotalRounds:     row.TotalRounds,
		HoldingPosition: row.HoldingPosition,
		UpdatedAt:       row.UpdatedAt,
	}, true, nil
}

func listDraftTeams(ctx context.Context, q dbtx, leagueID string) ([]draft.Team, error) {
	query, args, err := qb.Select(draftTeamColumns...).
		From("draft_teams").
		Where(qb.Eq("league_public_id", leagueID), qb.IsNull("deleted_at")).
		OrderBy("draft_position").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select draft teams query: %w", err)
	}

	var rows []draftTeamTableModel
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select draft teams league=%s: %w", leagueID, err)
	}

	out := make([]draft.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, draft.Team{
			ID:            row.PublicID,
			LeagueID:      row.LeagueID,
			OwnerUserID:   row.OwnerUserID,
			Name:          row.Name,
			DraftPosition: row.DraftPosition,
		})
	}
	return out, nil
}

func listDraftPicks(ctx context.Context, q dbtx, leagueID string) ([]draft.Pick, error) {
	query, args, err := qb.Select(draftPickColumns...).
		From("draft_picks").
		Where(qb.Eq("league_public_id", leagueID)).
		OrderBy("overall_pick").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select draft picks query: %w", err)
	}

	var rows []draftPickTableModel
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select draft picks league=%s: %w", leagueID, err)
	}

	out := make([]draft.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, pickFromRow(row))
	}
	return out, nil
}

func listDraftAssets(ctx context.Context, q dbtx, leagueID string) ([]draft.Asset, error) {
	query, args, err := qb.Select(draftAssetColumns...).
		From("draft_assets").
		Where(qb.Eq("league_public_id", leagueID), qb.IsNull("deleted_at")).
		OrderBy("projected_points DESC", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select draft assets query: %w", err)
	}

	var rows []draftAssetTableModel
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select draft assets league=%s: %w", leagueID, err)
	}

	out := make([]draft.Asset, 0, len(rows))
	for _, row := range rows {
		out = append(out, assetFromRow(row))
	}
	return out, nil
}

func pickFromRow(row draftPickTableModel) draft.Pick {
	return draft.Pick{
		LeagueID:          row.LeagueID,
		Round:             row.Round,
		PickNumberInRound: row.PickNumberInRound,
		OverallPick:       row.OverallPick,
		OwnerTeamID:       row.OwnerTeamID,
		AssetID:           row.AssetID.String,
		PickedAt:          row.PickedAt,
		Source:            draft.PickSource(row.Source.String),
	}
}

func assetFromRow(row draftAssetTableModel) draft.Asset {
	return draft.Asset{
		ID:              row.PublicID,
		LeagueID:        row.LeagueID,
		Name:            row.Name,
		Position:        row.Position,
		ProjectedPoints: row.ProjectedPoints,
	}
}

func listRosterEntries(ctx context.Context, q dbtx, leagueID string) ([]draft.RosterEntry, error) {
	query, args, err := qb.Select(draftRosterEntryColumns...).
		From("draft_roster_entries").
		Where(qb.Eq("league_public_id", leagueID), qb.IsNull("deleted_at")).
		OrderBy("team_public_id", "week", "position", "slot_index").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select roster entries query: %w", err)
	}

	var rows []draftRosterEntryTableModel
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select roster entries league=%s: %w", leagueID, err)
	}

	out := make([]draft.RosterEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, rosterEntryFromRow(row))
	}
	return out, nil
}

func rosterEntryFromRow(row draftRosterEntryTableModel) draft.RosterEntry {
	return draft.RosterEntry{
		ID:        row.PublicID,
		LeagueID:  row.LeagueID,
		TeamID:    row.TeamID,
		Week:      row.Week,
		Position:  row.Position,
		SlotIndex: row.SlotIndex,
		AssetID:   row.AssetID,
		CreatedAt: row.CreatedAt,
	}
}
