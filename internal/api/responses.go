// internal/api/responses.go
package api

import (
	"encoding/json"
	"net/http"

	"admissions-workflow/internal/common/errors"
)

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	we, ok := errors.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    string(errors.ErrCodeStorageFailed),
			Message: "internal error",
		})
		return
	}
	writeJSON(w, statusFor(we.Code), errorResponse{
		Code:    string(we.Code),
		Message: we.Message,
		Details: we.Details,
	})
}

// statusFor maps workflow error codes onto HTTP statuses.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusForbidden
	case errors.ErrCodeInvalidTransition, errors.ErrCodeVersionConflict:
		return http.StatusConflict
	case errors.ErrCodeMissingReason, errors.ErrCodeValidationFailed,
		errors.ErrCodeInvalidDocumentType, errors.ErrCodeUnknownCourse:
		return http.StatusBadRequest
	case errors.ErrCodeDuplicateApplication:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
