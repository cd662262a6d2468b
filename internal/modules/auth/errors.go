package auth

import (
	"net/http"

	"github.com/delordemm1/notes-api/internal/apperror"
)

// Input validation failures are returned as *validation.ValidationError.
var (
	ErrConflict = apperror.New("auth", "ErrConflict", http.StatusConflict,
		"an account with this email already exists")

	ErrNotFound = apperror.New("auth", "ErrNotFound", http.StatusNotFound,
		"account not found")

	ErrInvalidOrExpired = apperror.New("auth", "ErrInvalidOrExpired", http.StatusBadRequest,
		"invalid or expired code")

	ErrInvalidCredentials = apperror.New("auth", "ErrInvalidCredentials", http.StatusUnauthorized,
		"invalid email or password")

	// ErrNotVerified guards states that current construction rules never produce.
	ErrNotVerified = apperror.New("auth", "ErrNotVerified", http.StatusForbidden,
		"please verify your email first")

	ErrInvalidAssertion = apperror.New("auth", "ErrInvalidAssertion", http.StatusUnauthorized,
		"invalid google token")

	ErrInternal = apperror.New("auth", "ErrInternal", http.StatusInternalServerError,
		"internal server error")
)

var errPendingNotFound = ErrNotFound.WithDetail("signup request not found or expired")
