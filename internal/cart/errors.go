package cart

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrActiveCartExists  = errors.New("user already has an active cart")
	ErrStaleTransition   = errors.New("cart status changed concurrently")
	ErrInvalidTransition = errors.New("invalid cart transition")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyClaimed    = errors.New("cart already claimed")
	ErrReviewExists      = errors.New("order already reviewed")
)

// ValidationError is a user mistake. Message is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
