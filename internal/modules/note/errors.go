package note

import (
	"net/http"

	"github.com/delordemm1/notes-api/internal/apperror"
)

var (
	// ErrNotFound is also returned for notes owned by another account.
	ErrNotFound = apperror.New("note", "ErrNotFound", http.StatusNotFound,
		"note not found")

	ErrInternal = apperror.New("note", "ErrInternal", http.StatusInternalServerError,
		"internal server error")
)
