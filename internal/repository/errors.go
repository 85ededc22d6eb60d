package repository

import (
	"errors"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Translate maps a store error onto the application taxonomy: missing rows
// become NotFound, anything else the store could not do becomes Unavailable.
// Errors that already carry an application code pass through.
func Translate(resource string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Unavailable(err)
}
