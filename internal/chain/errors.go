package chain

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount rejects a non-numeric, negative, or zero amount before
// any network call is made.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrBroadcastTimeout means no confirmation arrived inside the deadline.
// The transaction's true outcome is unknown: it may have landed. Callers
// must reconcile the hash against the indexer before treating it as
// failed for good.
var ErrBroadcastTimeout = errors.New("broadcast timed out")

// BroadcastError is a chain-side rejection. RawLog is surfaced to the
// user verbatim.
type BroadcastError struct {
	Code   uint32
	RawLog string
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast rejected (code %d): %s", e.Code, e.RawLog)
}
