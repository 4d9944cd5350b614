package models

import (
	"time"

	"github.com/google/uuid"
)

// SuppressMode selects how long a suppression lasts.
type SuppressMode string

const (
	// SuppressIndefinite hides the problem until it is unsuppressed manually.
	SuppressIndefinite SuppressMode = "indefinite"
	// SuppressUntil hides the problem until a concrete instant.
	SuppressUntil SuppressMode = "until"
)

// UpdateIntent is the operator's ephemeral update form. It is held only for
// the duration of one submit and is never persisted as-is.
type UpdateIntent struct {
	Message       string       `json:"message"`
	Close         bool         `json:"close"`
	Suppress      bool         `json:"suppress"`
	SuppressMode  SuppressMode `json:"suppress_mode,omitempty"`
	SuppressUntil *time.Time   `json:"suppress_until,omitempty"`
	Unsuppress    bool         `json:"unsuppress"`
}

// Normalize enforces the intent-level exclusivity rules: close wins over
// suppress and unsuppress, which are switched off when it is set.
func (i *UpdateIntent) Normalize() {
	if i.Close {
		i.Suppress = false
		i.Unsuppress = false
	}
}

// Update statuses recorded in the audit trail.
const (
	UpdateStatusSucceeded = "succeeded"
	UpdateStatusFailed    = "failed"
)

// UpdateRecord is one audited update submission and its outcome.
type UpdateRecord struct {
	ID            uuid.UUID `json:"id"`
	EventID       string    `json:"eventid"`
	ActingUser    string    `json:"acting_user"`
	ActionMask    int       `json:"action_mask"`
	Message       string    `json:"message"`
	SuppressUntil int64     `json:"suppress_until,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
