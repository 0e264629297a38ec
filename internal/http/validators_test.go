package httpapi

import (
	"testing"

	"cmms-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestValidHHMM(t *testing.T) {
	valid := []string{"", "00:00", "09:30", "23:59"}
	for _, s := range valid {
		require.True(t, validHHMM(s), "%q", s)
	}

	invalid := []string{"9:30", "24:00", "23:60", "09-30", "ab:cd", "0a:30", "+9:15", "09:3 ", "09:300"}
	for _, s := range invalid {
		require.False(t, validHHMM(s), "%q", s)
	}
}

func TestRequireHHMM(t *testing.T) {
	require.NoError(t, requireHHMM("start_time", "08:00"))
	err := requireHHMM("start_time", "8am")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
