package httpapi

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"cmms-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidInput, 400},
		{domain.ErrUnauthenticated, 401},
		{domain.ErrUnauthorized, 403},
		{domain.ErrNotFound, 404},
		{domain.ErrConflict, 409},
		{domain.ErrUnavailable, 503},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeError(rr, fmt.Errorf("failed to get schedule: %w", tc.err))
		require.Equal(t, tc.status, rr.Code, "sentinel %v", tc.err)
	}
}

func TestWriteError_UnknownErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("pq: password authentication failed"))
	require.Equal(t, 500, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")
}
