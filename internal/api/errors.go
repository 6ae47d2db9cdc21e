package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "datastory/internal/errors"
)

// ErrorResponse is the body of every failed request. RecordID names the
// source, analysis or draft persisted in a failed state, when there is one.
type ErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	RecordID string `json:"record_id,omitempty"`
}

var statusByCode = map[string]int{
	apperrors.CodeNotFound:          http.StatusNotFound,
	apperrors.CodeInvalidInput:      http.StatusBadRequest,
	apperrors.CodeValidationError:   http.StatusConflict,
	apperrors.CodeEmptyInput:        http.StatusUnprocessableEntity,
	apperrors.CodeEmptyDataset:      http.StatusUnprocessableEntity,
	apperrors.CodeNoColumns:         http.StatusUnprocessableEntity,
	apperrors.CodeEmptySheet:        http.StatusUnprocessableEntity,
	apperrors.CodeNoSheets:          http.StatusUnprocessableEntity,
	apperrors.CodeInvalidSyntax:     http.StatusUnprocessableEntity,
	apperrors.CodeUnsupportedFormat: http.StatusUnsupportedMediaType,
	apperrors.CodeInsightGeneration: http.StatusBadGateway,
	apperrors.CodeStoryGeneration:   http.StatusBadGateway,
	apperrors.CodeExternalService:   http.StatusBadGateway,
	apperrors.CodeConfigInvalid:     http.StatusServiceUnavailable,
}

// statusFor maps the error's code to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if status, ok := statusByCode[apperrors.GetCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError renders err localized for the request's Accept-Language.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, recordID string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.log.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}

	body := ErrorResponse{
		Code:     apperrors.GetCode(err),
		Message:  apperrors.Localize(err, r.Header.Get("Accept-Language")),
		RecordID: recordID,
	}
	if status == http.StatusInternalServerError {
		body.Message = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] json encode error: %v", err)
	}
}
