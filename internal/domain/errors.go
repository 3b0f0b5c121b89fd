package domain

import (
	"strings"

	apperrors "github.com/yohanna4/song-manager/pkg/errors"
)

var (
	ErrSongNotFound     = apperrors.ErrSongNotFound
	ErrValidationFailed = apperrors.ErrValidationFailed
	ErrOriginForbidden  = apperrors.ErrOriginForbidden
	ErrStoreUnavailable = apperrors.ErrStoreUnavailable
)

// NewValidationError reports the failing fields by JSON name.
func NewValidationError(fields ...string) error {
	return apperrors.ErrValidationFailed.
		WithMessage("Validation failed: " + strings.Join(fields, ", ")).
		WithDetails(fields)
}
