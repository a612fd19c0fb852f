package chat

import "errors"

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrCommunicationBlocked   = errors.New("communication blocked")
)

// ErrorCode returns the stable machine-readable code for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrAuthenticationRequired):
		return "AUTHENTICATION_REQUIRED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "AUTHORIZATION_DENIED"
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, ErrCommunicationBlocked):
		return "COMMUNICATION_BLOCKED"
	default:
		return "INTERNAL"
	}
}
