package draft

import "errors"

var (
	ErrInvalidState        = errors.New("invalid draft state")
	ErrTurnViolation       = errors.New("not the team's turn")
	ErrAssetUnavailable    = errors.New("asset already drafted")
	ErrNoPicksRemaining    = errors.New("no picks remaining")
	ErrConcurrencyConflict = errors.New("pick was claimed concurrently")
	ErrInvalidSetup        = errors.New("invalid draft setup")
)
