package problems

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"problems-service/internal/models"
)

func TestSuppressUntilEpochIndefinite(t *testing.T) {
	got, err := SuppressUntilEpoch(models.SuppressIndefinite, nil)
	require.NoError(t, err)
	assert.Zero(t, got)

	// An unset mode means indefinite as well.
	got, err = SuppressUntilEpoch("", nil)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestSuppressUntilEpochFloorsToSeconds(t *testing.T) {
	instant := time.Unix(1700000000, 999_000_000)
	got, err := SuppressUntilEpoch(models.SuppressUntil, &instant)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)
}

func TestSuppressUntilEpochRequiresInstant(t *testing.T) {
	_, err := SuppressUntilEpoch(models.SuppressUntil, nil)
	assert.ErrorIs(t, err, ErrMissingSuppressUntil)

	zero := time.Time{}
	_, err = SuppressUntilEpoch(models.SuppressUntil, &zero)
	assert.ErrorIs(t, err, ErrMissingSuppressUntil)
}

func TestSuppressUntilEpochRejectsUnknownMode(t *testing.T) {
	_, err := SuppressUntilEpoch("forever", nil)
	assert.ErrorIs(t, err, ErrBadSuppressMode)
}
