package auth

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicateUser         = errors.New("duplicate user")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUserNotFound          = errors.New("user not found")
	ErrIncorrectPassword     = errors.New("incorrect current password")
)

// ValidationError carries a caller-facing message and matches ErrInvalidInput.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// PublicMessage returns the text shown to API callers for a gate error.
// Unknown errors get an empty string so callers can pick their own fallback.
func PublicMessage(err error) string {
	var verr *ValidationError

	switch {
	case errors.As(err, &verr):
		return verr.Msg
	case errors.Is(err, ErrDuplicateUser):
		return "User with this email already exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "Invalid or expired token"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrIncorrectPassword):
		return "Current password is incorrect"
	default:
		return ""
	}
}
