package draft

import "fmt"

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s Status) CanStart() error {
	if s != StatusNotStarted {
		return fmt.Errorf("%w: cannot start draft in status %s", ErrInvalidState, s)
	}
	return nil
}

func (s Status) CanPause() error {
	if s != StatusInProgress {
		return fmt.Errorf("%w: cannot pause draft in status %s", ErrInvalidState, s)
	}
	return nil
}

func (s Status) CanResume() error {
	if s != StatusPaused {
		return fmt.Errorf("%w: cannot resume draft in status %s", ErrInvalidState, s)
	}
	return nil
}

// CanPick reports whether picks may be applied in this status.
func (s Status) CanPick() error {
	if s != StatusInProgress {
		return fmt.Errorf("%w: draft is %s", ErrInvalidState, s)
	}
	return nil
}
