package storage

import (
	"errors"

	apperrors "github.com/pawmate/pawmate/internal/errors"
)

// AsServiceError converts a store error for resource id into the typed error
// the HTTP layer renders. Already typed errors pass through.
func AsServiceError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.GetServiceError(err) != nil:
		return err
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound(resource, id)
	case errors.Is(err, ErrConflict):
		return apperrors.Conflict("%s already exists", resource)
	}
	return apperrors.Internal("storage failure on "+resource, err)
}
