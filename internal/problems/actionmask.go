package problems

import (
	"errors"
	"fmt"
	"strings"

	"problems-service/internal/models"
)

// Backend update action bits. Each bit is one independently-composable
// action; composing two actions is a bitwise OR on a single request, never
// two requests.
const (
	ActionClose          = 1
	ActionAcknowledge    = 2
	ActionAddMessage     = 4
	ActionChangeSeverity = 8
	ActionSuppress       = 32
	ActionUnsuppress     = 64
	ActionChangeRank     = 128
)

var (
	// ErrEmptyUpdate rejects a no-op submission (no action bits and a
	// blank message) before any backend call is attempted.
	ErrEmptyUpdate = errors.New("update has no action and no message")
	// ErrConflictingIntent rejects intents violating the exclusivity
	// rules the form normally enforces upstream.
	ErrConflictingIntent = errors.New("conflicting update intent")
)

// UpdateParams is the wire-ready output of the encoder: the action mask,
// the JSON message payload, and the suppress-until extra parameter
// (0 means omit it).
type UpdateParams struct {
	Action        int
	Message       string
	SuppressUntil int64
}

// EncodeUpdate turns an operator intent into backend update parameters.
// The acting user's display name is supplied by the caller; the encoder
// never invents one.
//
// The message bit is set by default but must be cleared whenever the
// suppress bit is set: the wire protocol rejects the two combined, even
// though the message field itself is still transmitted.
func EncodeUpdate(intent models.UpdateIntent, actingUser string) (UpdateParams, error) {
	if intent.Suppress && intent.Unsuppress {
		return UpdateParams{}, fmt.Errorf("%w: suppress and unsuppress are mutually exclusive", ErrConflictingIntent)
	}
	if intent.Close && (intent.Suppress || intent.Unsuppress) {
		return UpdateParams{}, fmt.Errorf("%w: close excludes suppress and unsuppress", ErrConflictingIntent)
	}

	message := strings.TrimSpace(intent.Message)

	mask := 0
	if intent.Close {
		// Closing always acknowledges.
		mask |= ActionClose | ActionAcknowledge
	}

	var suppressUntil int64
	if intent.Suppress {
		mask |= ActionSuppress
		until, err := SuppressUntilEpoch(intent.SuppressMode, intent.SuppressUntil)
		if err != nil {
			return UpdateParams{}, err
		}
		suppressUntil = until
	}
	if intent.Unsuppress {
		mask |= ActionUnsuppress
	}

	// The no-op check runs before the default message bit so that a blank
	// form is rejected here instead of reaching the backend.
	if mask == 0 && message == "" {
		return UpdateParams{}, ErrEmptyUpdate
	}

	mask |= ActionAddMessage
	if intent.Suppress {
		mask &^= ActionAddMessage
	}

	payload, err := EncodeAttributedMessage(actingUser, message)
	if err != nil {
		return UpdateParams{}, fmt.Errorf("encode message payload: %w", err)
	}

	return UpdateParams{Action: mask, Message: payload, SuppressUntil: suppressUntil}, nil
}

// IsValidationError reports whether err is an operator-facing validation
// failure rather than a transport or backend error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyUpdate) ||
		errors.Is(err, ErrConflictingIntent) ||
		errors.Is(err, ErrMissingSuppressUntil) ||
		errors.Is(err, ErrBadSuppressMode)
}
