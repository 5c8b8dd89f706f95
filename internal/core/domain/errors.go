package domain

import "errors"

// --- ERREURS DU DOMAINE ---
var (
	ErrPostNotFound       = errors.New("post not found")
	ErrForbidden          = errors.New("only the author can modify this post")
	ErrRemoteWrite        = errors.New("remote write failed")
	ErrFeedUnavailable    = errors.New("feed unavailable")
	ErrEmptyTitle         = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be at most 50 characters")
	ErrDescriptionTooLong = errors.New("description must be at most 600 characters")
	ErrInvalidUpdate      = errors.New("invalid field update")
)

// IsValidationError regroupe les erreurs de saisie.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrTitleTooLong) ||
		errors.Is(err, ErrDescriptionTooLong)
}
