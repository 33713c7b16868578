// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST API of the service: account auth, resume upload and
// evaluation, chat, and user preferences. HTTP concerns stay here; business
// rules live in usecase.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Provider
// busy/timeout/unavailable all read as a temporarily unavailable AI backend;
// their message is replaced so vendor wording never reaches clients.
func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrUnauthorized):
		code = http.StatusUnauthorized
		codeStr = "UNAUTHORIZED"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrProviderBusy):
		code = http.StatusServiceUnavailable
		codeStr = "PROVIDER_BUSY"
		msg = "The AI service is currently busy. Please try again shortly."
	case errors.Is(err, domain.ErrProviderTimeout):
		code = http.StatusServiceUnavailable
		codeStr = "PROVIDER_TIMEOUT"
		msg = "The AI service took too long to respond. Please try again."
	case errors.Is(err, domain.ErrProviderUnavailable):
		code = http.StatusServiceUnavailable
		codeStr = "PROVIDER_UNAVAILABLE"
		msg = "The AI service is not available."
	case errors.Is(err, domain.ErrProviderError):
		code = http.StatusBadGateway
		codeStr = "PROVIDER_ERROR"
		msg = "The AI service returned an error."
	case errors.Is(err, domain.ErrAnalysisFailed):
		code = http.StatusBadGateway
		codeStr = "ANALYSIS_FAILED"
		msg = "The resume could not be analyzed. Please try again."
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: msg, Details: details}})
}
