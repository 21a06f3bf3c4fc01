package service

import "errors"

var (
	ErrEmailExists        = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")

	// ErrNotFound covers both a genuinely absent model and one owned by a
	// different user, deliberately indistinguishable.
	ErrNotFound = errors.New("model not found")

	// ErrTooManyTrainings is returned when the caller's concurrent training
	// slots are exhausted.
	ErrTooManyTrainings = errors.New("too many concurrent training requests")
)

// ValidationError reports a structurally or semantically invalid request.
// Raised before any token is debited wherever possible.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
