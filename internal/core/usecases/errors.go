package usecases

import (
	"errors"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// classify makes sure a repository failure surfaces as a typed error.
// Validation and store errors pass through; anything else is treated as the
// store being unavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}
