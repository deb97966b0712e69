package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/fantasy-draft/internal/domain/jobscheduler"
)

// JobDispatchRepository keeps one merged ledger row per dispatch id.
type JobDispatchRepository struct {
	mu   sync.RWMutex
	rows map[string]jobscheduler.Dispatch
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{rows: make(map[string]jobscheduler.Dispatch)}
}

func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[event.DispatchID] = r.rows[event.DispatchID].Apply(event)
	return nil
}

func (r *JobDispatchRepository) Get(dispatchID string) (jobscheduler.Dispatch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[dispatchID]
	return row, ok
}

// List orders rows by their latest event.
func (r *JobDispatchRepository) List() []jobscheduler.Dispatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]jobscheduler.Dispatch, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].DispatchID < out[j].DispatchID
	})
	return out
}
