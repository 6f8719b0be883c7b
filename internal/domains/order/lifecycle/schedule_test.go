package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("59 minutes is too soon", func(t *testing.T) {
		err := ValidateSchedule(createdAt, time.Date(2024, 1, 1, 10, 59, 0, 0, time.UTC))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrScheduleTooSoon))

		var tse *TooSoonError
		require.True(t, errors.As(err, &tse))
		assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), tse.Earliest)
	})

	t.Run("exactly 60 minutes is accepted", func(t *testing.T) {
		assert.NoError(t, ValidateSchedule(createdAt, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)))
	})

	t.Run("next day is accepted", func(t *testing.T) {
		assert.NoError(t, ValidateSchedule(createdAt, createdAt.Add(24*time.Hour)))
	})

	t.Run("before creation is rejected", func(t *testing.T) {
		assert.ErrorIs(t, ValidateSchedule(createdAt, createdAt.Add(-time.Hour)), ErrScheduleTooSoon)
	})

	t.Run("other timezone compares instants", func(t *testing.T) {
		loc := time.FixedZone("UTC+7", 7*3600)
		assert.NoError(t, ValidateSchedule(createdAt, time.Date(2024, 1, 1, 18, 0, 0, 0, loc)))
		assert.Error(t, ValidateSchedule(createdAt, time.Date(2024, 1, 1, 17, 30, 0, 0, loc)))
	})
}
