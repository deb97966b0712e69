package jobscheduler

import (
	"fmt"
	"strings"
	"time"
)

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusSkipped   DispatchStatus = "skipped"
	StatusFailed    DispatchStatus = "failed"
)

// Delivered reports whether the status is written by the job handler rather
// than by the scheduler.
func (s DispatchStatus) Delivered() bool {
	return s == StatusCompleted || s == StatusSkipped || s == StatusFailed
}

// DispatchEvent is one state change of a queued auto-pick job for a draft
// turn. Detail carries the failure message or the skip reason.
type DispatchEvent struct {
	DispatchID  string
	JobName     string
	LeagueID    string
	TeamID      string
	OverallPick int
	Status      DispatchStatus
	RunAt       *time.Time
	Detail      string
	OccurredAt  time.Time
	TraceID     string
	SpanID      string
}

func (e DispatchEvent) Validate() error {
	if strings.TrimSpace(e.DispatchID) == "" {
		return fmt.Errorf("dispatch id is required")
	}
	switch e.Status {
	case StatusSent, StatusCompleted, StatusSkipped, StatusFailed:
	default:
		return fmt.Errorf("invalid dispatch status %q", e.Status)
	}
	if e.OverallPick < 0 {
		return fmt.Errorf("overall pick must be >= 0")
	}
	return nil
}

// Dispatch is the merged ledger row for one dispatch id.
type Dispatch struct {
	DispatchEvent
	SentAt     *time.Time
	FinishedAt *time.Time
	Attempts   int
}

// Apply folds an event into the ledger row. Sent events reset the row;
// delivered events count an attempt and keep the original send time.
func (d Dispatch) Apply(event DispatchEvent) Dispatch {
	at := event.OccurredAt.UTC()
	next := d
	next.DispatchEvent = event
	if event.Status == StatusSent {
		next.SentAt = &at
		next.FinishedAt = nil
		next.Attempts = 0
		next.Detail = ""
		return next
	}
	if event.RunAt == nil {
		next.RunAt = d.RunAt
	}
	if event.Status.Delivered() {
		next.Attempts = d.Attempts + 1
		next.FinishedAt = &at
	}
	return next
}
