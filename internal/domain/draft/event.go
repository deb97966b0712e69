package draft

import "time"

type EventType string

const (
	EventStarted   EventType = "draft.started"
	EventPaused    EventType = "draft.paused"
	EventResumed   EventType = "draft.resumed"
	EventPickMade  EventType = "draft.pick_made"
	EventCompleted EventType = "draft.completed"
)

// Event is an outbox record written in the same transaction as the state
// change it describes.
type Event struct {
	ID          string
	LeagueID    string
	Type        EventType
	Payload     map[string]any
	OccurredAt  time.Time
	PublishedAt *time.Time
}

func PickMadePayload(pick Pick, entry RosterEntry) map[string]any {
	payload := map[string]any{
		"round":                pick.Round,
		"pick_number_in_round": pick.PickNumberInRound,
		"overall_pick":         pick.OverallPick,
		"team_id":              pick.OwnerTeamID,
		"asset_id":             pick.AssetID,
		"source":               string(pick.Source),
		"roster_position":      entry.Position,
		"roster_slot_index":    entry.SlotIndex,
	}
	if pick.PickedAt != nil {
		payload["picked_at"] = pick.PickedAt.UTC().Format(time.RFC3339Nano)
	}
	return payload
}

func LeaguePayload(league League) map[string]any {
	payload := map[string]any{
		"status":           string(league.Status),
		"order_mode":       string(league.OrderMode),
		"seconds_per_pick": league.SecondsPerPick,
		"total_rounds":     league.TotalRounds,
	}
	if league.Deadline != nil {
		payload["deadline"] = league.Deadline.UTC().Format(time.RFC3339Nano)
	}
	return payload
}
