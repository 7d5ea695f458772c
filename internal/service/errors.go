package service

import (
	"errors"
	"fmt"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/media"
	"github.com/weiawesome/plantpal/internal/repository"
)

// translate maps lower-layer errors to the service error kinds.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrPostNotFound):
		return ErrPostNotFound
	case errors.Is(err, repository.ErrStoreUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, domain.ErrInvalidCursor):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	case errors.Is(err, media.ErrUnsupportedImage),
		errors.Is(err, media.ErrInvalidImage),
		errors.Is(err, media.ErrImageTooLarge):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
