// Package shared holds the JSON response helpers every handler uses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "docrelay/pkg/domain-errors"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// WriteError maps a domain error code onto an HTTP status and writes the
// standard error body. Messages for internal errors are masked; the detail
// lives in the logs, not the response.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	message := "internal error"
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			message = de.Message
		}
	}
	WriteJSON(w, status, errorBody{Error: string(code), Message: message})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodePolicyDenied:
		return http.StatusForbidden
	case dErrors.CodeResolutionFailed, dErrors.CodeUnmatchedResponse:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimingSuppressed, dErrors.CodeEscalationLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
