package fees

import "errors"

// Error kinds surfaced by the fee engine and the intake channels. Controllers
// map these to HTTP statuses with errors.Is; the wrapped message carries the
// human-readable detail.
var (
	// ErrValidation rejects out-of-range or malformed input before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound reports an unknown admission, payment or course id.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports an idempotency violation, e.g. approving a payment
	// that is already paid. The ledger is left untouched.
	ErrConflict = errors.New("conflict")
)
