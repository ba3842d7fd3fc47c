package interest

import "errors"

var (
	// ErrInvalidAmount is returned when the principal is zero or negative.
	ErrInvalidAmount = errors.New("principal amount must be greater than 0")

	// ErrFutureDueDate is returned when the due date is after the evaluation
	// date; an invoice that is not yet due cannot accrue interest.
	ErrFutureDueDate = errors.New("due date cannot be in the future")
)
