package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid request",
			err:            domain.ErrInvalidRequest,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_request",
		},
		{
			name:           "invalid client",
			err:            domain.ErrInvalidClient,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "invalid_client",
		},
		{
			name:           "client not found",
			err:            domain.ErrClientNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "invalid_client",
		},
		{
			name:           "invalid grant",
			err:            domain.ErrInvalidAuthorizationCode,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_grant",
		},
		{
			name:           "access denied",
			err:            domain.ErrAccessDenied,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "access_denied",
		},
		{
			name:           "forbidden",
			err:            domain.ErrForbidden,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "forbidden",
		},
		{
			name:           "invalid token",
			err:            domain.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "invalid_token",
		},
		{
			name:           "server error",
			err:            domain.ErrInternal,
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "server_error",
		},
		{
			name:           "unknown errors are masked",
			err:            fmt.Errorf("pq: connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithError(w, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.expectedCode, body.Error)
		})
	}
}

func TestRespondWithError_MasksInternals(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, fmt.Errorf("dial tcp 10.0.0.5:5432: connect: connection refused"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotContains(t, body.ErrorDescription, "10.0.0.5")
	assert.Equal(t, "server_error", body.Error)
}

func TestRespondWithError_BasicChallenge(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, domain.ErrInvalidClient)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
}

func TestRespondWithBearerError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithBearerError(w, domain.ErrTokenExpired)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Bearer error="invalid_token"`, w.Header().Get("WWW-Authenticate"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "invalid_token", body.Error)
}
