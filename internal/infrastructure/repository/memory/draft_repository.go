package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
)

// DraftRepository keeps draft state in process memory. Transactions buffer
// their writes and apply them on commit. Pick rows and assets are reserved at
// claim time so a competing transaction fails fast instead of blocking.
type DraftRepository struct {
	mu      sync.RWMutex
	leagues map[string]draft.League
	teams   map[string][]draft.Team
	assets  map[string][]draft.Asset
	picks   map[string]map[int]draft.Pick
	roster  map[string][]draft.RosterEntry
	events  []draft.Event

	reservedPicks  map[string]*draftTx
	reservedAssets map[string]*draftTx

	leagueLocks *keyedMutex
	rosterLocks *keyedMutex
}

func NewDraftRepository() *DraftRepository {
	return &DraftRepository{
		leagues:        make(map[string]draft.League),
		teams:          make(map[string][]draft.Team),
		assets:         make(map[string][]draft.Asset),
		picks:          make(map[string]map[int]draft.Pick),
		roster:         make(map[string][]draft.RosterEntry),
		reservedPicks:  make(map[string]*draftTx),
		reservedAssets: make(map[string]*draftTx),
		leagueLocks:    newKeyedMutex(),
		rosterLocks:    newKeyedMutex(),
	}
}

// AddLeague registers a league with its teams and asset pool. Existing data for
// the league is replaced.
func (r *DraftRepository) AddLeague(league draft.League, teams []draft.Team, assets []draft.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leagues[league.LeagueID] = cloneLeague(league)
	r.teams[league.LeagueID] = append([]draft.Team(nil), teams...)
	r.assets[league.LeagueID] = append([]draft.Asset(nil), assets...)
	delete(r.picks, league.LeagueID)
	delete(r.roster, league.LeagueID)
}

func (r *DraftRepository) GetLeague(_ context.Context, leagueID string) (draft.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	league, ok := r.leagues[leagueID]
	if !ok {
		return draft.League{}, false, nil
	}
	return cloneLeague(league), true, nil
}

func (r *DraftRepository) ListTeams(_ context.Context, leagueID string) ([]draft.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.teamsLocked(leagueID), nil
}

func (r *DraftRepository) ListPicks(_ context.Context, leagueID string) ([]draft.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedPicks(r.picks[leagueID], nil, nil), nil
}

func (r *DraftRepository) ListRosterEntries(_ context.Context, leagueID string) ([]draft.RosterEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]draft.RosterEntry(nil), r.roster[leagueID]...), nil
}

func (r *DraftRepository) GetSnapshot(_ context.Context, leagueID string) (draft.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	league, ok := r.leagues[leagueID]
	if !ok {
		return draft.Snapshot{}, false, nil
	}
	return draft.Snapshot{
		League:  cloneLeague(league),
		Teams:   r.teamsLocked(leagueID),
		Picks:   sortedPicks(r.picks[leagueID], nil, nil),
		Assets:  r.assetsLocked(leagueID),
		Entries: append([]draft.RosterEntry(nil), r.roster[leagueID]...),
	}, true, nil
}

func (r *DraftRepository) ListOverdue(_ context.Context, now time.Time, limit int) ([]draft.OverdueTurn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]draft.OverdueTurn, 0)
	for leagueID, league := range r.leagues {
		if league.Status != draft.StatusInProgress || league.Deadline == nil || now.Before(*league.Deadline) {
			continue
		}
		current, ok := draft.CurrentPick(sortedPicks(r.picks[leagueID], nil, nil))
		if !ok {
			continue
		}
		out = append(out, draft.OverdueTurn{
			LeagueID:    leagueID,
			TeamID:      current.OwnerTeamID,
			OverallPick: current.OverallPick,
			Deadline:    *league.Deadline,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.Before(out[j].Deadline)
		}
		return out[i].LeagueID < out[j].LeagueID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DraftRepository) ListUnpublishedEvents(_ context.Context, limit int) ([]draft.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]draft.Event, 0)
	for _, e := range r.events {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, cloneEvent(e))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *DraftRepository) MarkEventsPublished(_ context.Context, eventIDs []string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		ids[id] = struct{}{}
	}
	for i := range r.events {
		if _, ok := ids[r.events[i].ID]; ok && r.events[i].PublishedAt == nil {
			at := publishedAt
			r.events[i].PublishedAt = &at
		}
	}
	return nil
}

func (r *DraftRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx draft.Tx) error) error {
	tx := &draftTx{
		repo:          r,
		heldLeagues:   make(map[string]struct{}),
		heldRosters:   make(map[string]struct{}),
		leagueUpdates: make(map[string]draft.League),
		insertedPicks: make(map[string]map[int]draft.Pick),
		claims:        make(map[string]draft.Pick),
	}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (r *DraftRepository) teamsLocked(leagueID string) []draft.Team {
	return append([]draft.Team(nil), r.teams[leagueID]...)
}

func (r *DraftRepository) assetsLocked(leagueID string) []draft.Asset {
	return append([]draft.Asset(nil), r.assets[leagueID]...)
}

type draftTx struct {
	repo *DraftRepository

	heldLeagues map[string]struct{}
	heldRosters map[string]struct{}

	leagueUpdates map[string]draft.League
	insertedPicks map[string]map[int]draft.Pick
	claims        map[string]draft.Pick
	claimedAssets []string
	rosterEntries []draft.RosterEntry
	events        []draft.Event
	done          bool
}

func (t *draftTx) GetLeague(_ context.Context, leagueID string) (draft.League, bool, error) {
	if league, ok := t.leagueUpdates[leagueID]; ok {
		return cloneLeague(league), true, nil
	}

	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	league, ok := t.repo.leagues[leagueID]
	if !ok {
		return draft.League{}, false, nil
	}
	return cloneLeague(league), true, nil
}

func (t *draftTx) LockLeague(ctx context.Context, leagueID string) (draft.League, bool, error) {
	if _, held := t.heldLeagues[leagueID]; !held {
		t.repo.leagueLocks.Lock(leagueID)
		t.heldLeagues[leagueID] = struct{}{}
	}
	return t.GetLeague(ctx, leagueID)
}

func (t *draftTx) ListTeams(_ context.Context, leagueID string) ([]draft.Team, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	return t.repo.teamsLocked(leagueID), nil
}

func (t *draftTx) ListPicks(_ context.Context, leagueID string) ([]draft.Pick, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	return sortedPicks(t.repo.picks[leagueID], t.insertedPicks[leagueID], t.claims), nil
}

func (t *draftTx) ListAssets(_ context.Context, leagueID string) ([]draft.Asset, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	return t.repo.assetsLocked(leagueID), nil
}

func (t *draftTx) GetAsset(_ context.Context, leagueID, assetID string) (draft.Asset, bool, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	for _, a := range t.repo.assets[leagueID] {
		if a.ID == assetID {
			return a, true, nil
		}
	}
	return draft.Asset{}, false, nil
}

func (t *draftTx) InsertPicks(_ context.Context, picks []draft.Pick) error {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	for _, p := range picks {
		if _, exists := t.repo.picks[p.LeagueID][p.OverallPick]; exists {
			continue
		}
		rows, ok := t.insertedPicks[p.LeagueID]
		if !ok {
			rows = make(map[int]draft.Pick)
			t.insertedPicks[p.LeagueID] = rows
		}
		if _, exists := rows[p.OverallPick]; !exists {
			rows[p.OverallPick] = clonePick(p)
		}
	}
	return nil
}

func (t *draftTx) UpdateLeague(_ context.Context, league draft.League) error {
	t.repo.mu.RLock()
	_, ok := t.repo.leagues[league.LeagueID]
	t.repo.mu.RUnlock()
	if !ok {
		return fmt.Errorf("league=%s does not exist", league.LeagueID)
	}

	t.leagueUpdates[league.LeagueID] = cloneLeague(league)
	return nil
}

func (t *draftTx) ClaimPick(_ context.Context, pick draft.Pick) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	key := pickKey(pick.LeagueID, pick.OverallPick)
	stored, ok := t.repo.picks[pick.LeagueID][pick.OverallPick]
	if !ok {
		stored, ok = t.insertedPicks[pick.LeagueID][pick.OverallPick]
	}
	if !ok {
		return fmt.Errorf("pick league=%s overall=%d does not exist", pick.LeagueID, pick.OverallPick)
	}
	if stored.IsPicked() {
		return fmt.Errorf("%w: overall pick %d already filled", draft.ErrConcurrencyConflict, pick.OverallPick)
	}
	if _, own := t.claims[key]; own {
		return fmt.Errorf("%w: overall pick %d already filled", draft.ErrConcurrencyConflict, pick.OverallPick)
	}
	if owner, reserved := t.repo.reservedPicks[key]; reserved && owner != t {
		return fmt.Errorf("%w: overall pick %d is being filled", draft.ErrConcurrencyConflict, pick.OverallPick)
	}

	assetKey := pick.LeagueID + "::" + pick.AssetID
	for _, p := range t.repo.picks[pick.LeagueID] {
		if p.IsPicked() && p.AssetID == pick.AssetID {
			return fmt.Errorf("%w: asset=%s", draft.ErrAssetUnavailable, pick.AssetID)
		}
	}
	if _, reserved := t.repo.reservedAssets[assetKey]; reserved {
		return fmt.Errorf("%w: asset=%s", draft.ErrAssetUnavailable, pick.AssetID)
	}

	claimed := stored
	claimed.AssetID = pick.AssetID
	claimed.PickedAt = cloneTime(pick.PickedAt)
	claimed.Source = pick.Source

	t.repo.reservedPicks[key] = t
	t.repo.reservedAssets[assetKey] = t
	t.claims[key] = claimed
	t.claimedAssets = append(t.claimedAssets, assetKey)
	return nil
}

func (t *draftTx) AppendRosterEntry(_ context.Context, entry draft.RosterEntry) (draft.RosterEntry, error) {
	key := rosterKey(entry.LeagueID, entry.TeamID, entry.Week, entry.Position)
	if _, held := t.heldRosters[key]; !held {
		t.repo.rosterLocks.Lock(key)
		t.heldRosters[key] = struct{}{}
	}

	t.repo.mu.RLock()
	slot := 0
	for _, e := range t.repo.roster[entry.LeagueID] {
		if rosterKey(e.LeagueID, e.TeamID, e.Week, e.Position) == key {
			slot++
		}
	}
	t.repo.mu.RUnlock()
	for _, e := range t.rosterEntries {
		if rosterKey(e.LeagueID, e.TeamID, e.Week, e.Position) == key {
			slot++
		}
	}

	entry.SlotIndex = slot
	t.rosterEntries = append(t.rosterEntries, entry)
	return entry, nil
}

func (t *draftTx) AppendEvent(_ context.Context, event draft.Event) error {
	t.events = append(t.events, cloneEvent(event))
	return nil
}

func (t *draftTx) commit() {
	if t.done {
		return
	}
	r := t.repo

	r.mu.Lock()
	for leagueID, league := range t.leagueUpdates {
		r.leagues[leagueID] = league
	}
	for leagueID, rows := range t.insertedPicks {
		stored, ok := r.picks[leagueID]
		if !ok {
			stored = make(map[int]draft.Pick, len(rows))
			r.picks[leagueID] = stored
		}
		for overall, p := range rows {
			if _, exists := stored[overall]; !exists {
				stored[overall] = p
			}
		}
	}
	for _, p := range t.claims {
		stored, ok := r.picks[p.LeagueID]
		if !ok {
			stored = make(map[int]draft.Pick)
			r.picks[p.LeagueID] = stored
		}
		stored[p.OverallPick] = p
	}
	for _, e := range t.rosterEntries {
		r.roster[e.LeagueID] = append(r.roster[e.LeagueID], e)
	}
	r.events = append(r.events, t.events...)
	t.releaseReservationsLocked()
	r.mu.Unlock()

	t.releaseLocks()
}

func (t *draftTx) rollback() {
	if t.done {
		return
	}
	t.repo.mu.Lock()
	t.releaseReservationsLocked()
	t.repo.mu.Unlock()

	t.releaseLocks()
}

func (t *draftTx) releaseReservationsLocked() {
	for key := range t.claims {
		if t.repo.reservedPicks[key] == t {
			delete(t.repo.reservedPicks, key)
		}
	}
	for _, key := range t.claimedAssets {
		if t.repo.reservedAssets[key] == t {
			delete(t.repo.reservedAssets, key)
		}
	}
}

func (t *draftTx) releaseLocks() {
	for key := range t.heldRosters {
		t.repo.rosterLocks.Unlock(key)
	}
	for key := range t.heldLeagues {
		t.repo.leagueLocks.Unlock(key)
	}
	t.done = true
}

// keyedMutex hands out one mutex per key. Entries are never evicted, which is
// fine for the bounded number of leagues kept in memory.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}

func sortedPicks(committed, inserted map[int]draft.Pick, claims map[string]draft.Pick) []draft.Pick {
	out := make([]draft.Pick, 0, len(committed)+len(inserted))
	seen := make(map[int]struct{}, len(committed)+len(inserted))
	for overall, p := range committed {
		seen[overall] = struct{}{}
		out = append(out, clonePick(p))
	}
	for overall, p := range inserted {
		if _, ok := seen[overall]; ok {
			continue
		}
		out = append(out, clonePick(p))
	}
	for i := range out {
		if claimed, ok := claims[pickKey(out[i].LeagueID, out[i].OverallPick)]; ok {
			out[i] = clonePick(claimed)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].OverallPick < out[j].OverallPick
	})
	return out
}

func pickKey(leagueID string, overallPick int) string {
	return leagueID + "::" + strconv.Itoa(overallPick)
}

func rosterKey(leagueID, teamID string, week int, position string) string {
	return leagueID + "::" + teamID + "::" + strconv.Itoa(week) + "::" + position
}

func cloneLeague(l draft.League) draft.League {
	copied := l
	copied.Deadline = cloneTime(l.Deadline)
	return copied
}

func clonePick(p draft.Pick) draft.Pick {
	copied := p
	copied.PickedAt = cloneTime(p.PickedAt)
	return copied
}

func cloneEvent(e draft.Event) draft.Event {
	copied := e
	copied.PublishedAt = cloneTime(e.PublishedAt)
	if e.Payload != nil {
		copied.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			copied.Payload[k] = v
		}
	}
	return copied
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
