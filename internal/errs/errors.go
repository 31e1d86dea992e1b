// Package errs defines the error kinds surfaced by the revenue-share core.
package errs

import "errors"

var (
	// ErrInvalidArgument rejects malformed input, e.g. non-positive base
	// revenue or an unparseable decimal.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks an unknown tier level, provider, wallet or payout id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState rejects an illegal payout status transition.
	ErrInvalidState = errors.New("invalid state")

	// ErrLimitExceeded rejects a retry past the retry cap.
	ErrLimitExceeded = errors.New("limit exceeded")
)

func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsInvalidState(err error) bool    { return errors.Is(err, ErrInvalidState) }
func IsLimitExceeded(err error) bool   { return errors.Is(err, ErrLimitExceeded) }
