package domain

import "errors"

var (
	ErrConnection      = errors.New("connection failed")
	ErrNotConnected    = errors.New("not connected")
	ErrSubscription    = errors.New("subscription rejected")
	ErrAssetUnresolved = errors.New("asset index not resolved")
	ErrSigningFailed   = errors.New("signing failed")
	ErrClosed          = errors.New("client closed")
)

// ValidationError is a user-correctable order input problem. It is surfaced
// inline to the user and never propagated as a crash.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
