package assetstorage

import (
	"errors"
	"fmt"
)

// ErrNotEnabled is returned when storage is disabled in configuration.
var ErrNotEnabled = errors.New("asset storage is not enabled")

// ValidationError reports malformed or missing caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failure of the token minting backend.
type UpstreamError struct {
	Container string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mint tokens for container %q: %v", e.Container, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
