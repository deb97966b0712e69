package jobscheduler

import "context"

// Repository stores the dispatch ledger. Recording is best-effort: callers
// log failures and carry on.
type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
}
