package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAuthorization       = errors.New("caller is not the party entitled to this action")
	ErrState               = errors.New("deal is not in the required status")
	ErrValueMismatch       = errors.New("supplied value does not equal budget plus penalty")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateID         = errors.New("duplicate deal id")
	ErrDoubleLock          = errors.New("value already locked for deal")
	ErrConservation        = errors.New("payout does not conserve locked value")
	ErrDealHalted          = errors.New("deal halted after conservation failure")
	ErrCustodyCapacity     = errors.New("total locked value would exceed 64 bits")
	ErrExternalFailure     = errors.New("external dependency unavailable")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrInvalidEnvelope     = errors.New("invalid envelope")
	ErrUnsupportedEvent    = errors.New("unsupported event type")
)

// rejections are the engine's final answers. Retrying the same call
// against the same state yields the same error.
var rejections = []error{
	ErrInvalidInput,
	ErrUnauthorized,
	ErrAuthorization,
	ErrState,
	ErrValueMismatch,
	ErrNotFound,
	ErrDuplicateID,
	ErrDoubleLock,
	ErrConservation,
	ErrDealHalted,
	ErrCustodyCapacity,
	ErrConflict,
	ErrIdempotencyConflict,
	ErrInvalidEnvelope,
	ErrUnsupportedEvent,
}

// IsRejection reports whether err is a final answer of the engine rather
// than a failure to reach one.
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a caller may reasonably retry after err.
// Precondition failures are final for the current deal state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExternalFailure)
}

// AsExternal marks err as a dependency failure unless it already is one or
// is a rejection. Context cancellation passes through unchanged.
func AsExternal(err error) error {
	switch {
	case err == nil, IsRejection(err), IsRetryable(err),
		errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %w", ErrExternalFailure, err)
}
