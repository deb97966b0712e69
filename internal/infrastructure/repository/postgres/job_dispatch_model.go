package postgres

import "time"

type draftJobDispatchInsertModel struct {
	DispatchID     string     `db:"dispatch_id"`
	JobName        string     `db:"job_name"`
	LeagueID       string     `db:"league_public_id"`
	TeamID         *string    `db:"team_public_id"`
	OverallPick    *int       `db:"overall_pick"`
	Status         string     `db:"status"`
	RunAt          *time.Time `db:"run_at"`
	SentAt         *time.Time `db:"sent_at"`
	FinishedAt     *time.Time `db:"finished_at"`
	Attempts       int        `db:"attempts"`
	Detail         *string    `db:"detail"`
	LastTraceID    *string    `db:"last_trace_id"`
	LastSpanID     *string    `db:"last_span_id"`
	LastOccurredAt time.Time  `db:"last_occurred_at"`
}
