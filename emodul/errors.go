package emodul

import (
	"fmt"
	"strings"
)

// APIErrorKind classifies request failures.
type APIErrorKind string

const (
	ErrKindTransport APIErrorKind = "transport"
	ErrKindDecode    APIErrorKind = "decode"
	ErrKindServer    APIErrorKind = "server"
)

// APIError surfaces eModul API request failures.
type APIError struct {
	Kind   APIErrorKind
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case ErrKindServer:
		return fmt.Sprintf("emodul api error %d: %s", e.Status, strings.TrimSpace(e.Body))
	case ErrKindDecode:
		return fmt.Sprintf("emodul decode error: %v", e.Err)
	default:
		return fmt.Sprintf("emodul transport error: %v", e.Err)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// AuthError distinguishes rejected credentials from transient login failures,
// so callers can tell the user to fix the password instead of retrying.
type AuthError struct {
	CredentialsRejected bool
	Err                 error
}

func (e *AuthError) Error() string {
	if e.CredentialsRejected {
		if e.Err != nil {
			return fmt.Sprintf("emodul login rejected: %v", e.Err)
		}
		return "emodul login rejected: invalid credentials"
	}
	return fmt.Sprintf("emodul login failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// MappingError reports a structurally malformed payload. Unknown enum values
// or tile types are tolerated and never produce it.
type MappingError struct {
	What string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("emodul mapping %s: %v", e.What, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }
