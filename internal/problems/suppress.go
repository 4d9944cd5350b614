package problems

import (
	"errors"
	"fmt"
	"time"

	"problems-service/internal/models"
)

var (
	// ErrMissingSuppressUntil is returned when the "until" mode is selected
	// without a concrete instant. The caller surfaces it to the operator
	// instead of silently defaulting.
	ErrMissingSuppressUntil = errors.New("suppress until requires an instant")
	// ErrBadSuppressMode is returned for a mode outside indefinite/until.
	ErrBadSuppressMode = errors.New("unsupported suppress mode")
)

// SuppressUntilEpoch converts a suppression choice into the epoch-seconds
// value the backend expects: 0 for indefinite, the instant floored to whole
// seconds otherwise. No timezone logic beyond what the instant encodes.
func SuppressUntilEpoch(mode models.SuppressMode, instant *time.Time) (int64, error) {
	switch mode {
	case models.SuppressIndefinite, "":
		return 0, nil
	case models.SuppressUntil:
		if instant == nil || instant.IsZero() {
			return 0, ErrMissingSuppressUntil
		}
		return instant.UnixMilli() / 1000, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadSuppressMode, mode)
	}
}
