package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ipede/authorization-server/internal/domain"
)

// ErrorResponse is the OAuth 2.1 error body
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func getStatus(err domain.Error) int {
	if err == domain.ErrClientNotFound || err == domain.ErrUserNotFound {
		return http.StatusNotFound
	}

	switch err.GetCode() {
	case domain.CodeInvalidClient:
		return http.StatusUnauthorized
	case domain.CodeInvalidToken:
		return http.StatusUnauthorized
	case domain.CodeAccessDenied:
		return http.StatusForbidden
	case domain.ErrForbidden.GetCode():
		return http.StatusForbidden
	case domain.CodeServerError:
		return http.StatusInternalServerError
	}

	return http.StatusBadRequest
}

// RespondWithError writes the OAuth error body with the matching status.
// Unrecognized errors are masked as server_error so internals never leak.
func RespondWithError(w http.ResponseWriter, err error) {
	var domainErr domain.Error
	if !errors.As(err, &domainErr) {
		domainErr = domain.ErrInternal
	}

	w.Header().Set("Content-Type", "application/json")
	if domainErr.GetCode() == domain.CodeInvalidClient {
		// Challenge required alongside 401 for failed client authentication
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
	}
	w.WriteHeader(getStatus(domainErr))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:            domainErr.GetCode(),
		ErrorDescription: domainErr.GetMessage(),
	})
}

// RespondWithBearerError writes the error with a Bearer challenge, used by
// resource endpoints such as userinfo
func RespondWithBearerError(w http.ResponseWriter, err error) {
	var domainErr domain.Error
	if !errors.As(err, &domainErr) {
		domainErr = domain.ErrInternal
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer error="`+domainErr.GetCode()+`"`)
	w.WriteHeader(getStatus(domainErr))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:            domainErr.GetCode(),
		ErrorDescription: domainErr.GetMessage(),
	})
}
