package card

import "errors"

// Service errors. Processor-side declines are not errors; they come back
// to the caller as the processor's own envelope.
var (
	ErrCardNotFound     = errors.New("card not found")
	ErrInvalidCardRef   = errors.New("invalid card reference")
	ErrUnknownAction    = errors.New("unrecognized step-up action")
	ErrMissingReference = errors.New("transaction reference is required")

	// ErrBilledNotRecorded is returned alongside a successful envelope when
	// the processor confirmed the charge but the billed flag could not be
	// written. The caller holds the money movement and must reconcile.
	ErrBilledNotRecorded = errors.New("charge succeeded but billed flag was not recorded")
)
