package sharing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoShares indicates a collective invoice without shares.
	ErrNoShares = errors.New("sharing: at least one share required")
	// ErrInvalidShareValue indicates a negative value, an out-of-range or
	// over-precise percent, an unknown share type or a sub-cent fixed amount.
	ErrInvalidShareValue = errors.New("sharing: invalid share value")
	// ErrOverAllocatedShares indicates shares exceeding the invoice total.
	ErrOverAllocatedShares = errors.New("sharing: shares exceed invoice total")
	// ErrIncompleteAllocation indicates a remainder nobody owns.
	ErrIncompleteAllocation = errors.New("sharing: allocation does not cover invoice total")
	// ErrDuplicateShareUser indicates two shares for the same user.
	ErrDuplicateShareUser = errors.New("sharing: duplicate share user")
	// ErrInvalidTotal indicates a negative total or sub-cent precision.
	ErrInvalidTotal = errors.New("sharing: invalid invoice total")
)

// ShareError locates a failure on a specific share.
type ShareError struct {
	Index  int
	Reason string
	Err    error
}

func (e *ShareError) Error() string {
	return fmt.Sprintf("%s: share %d: %s", e.Err, e.Index, e.Reason)
}

func (e *ShareError) Unwrap() error {
	return e.Err
}

func shareErr(idx int, err error, format string, args ...any) error {
	return &ShareError{Index: idx, Reason: fmt.Sprintf(format, args...), Err: err}
}
