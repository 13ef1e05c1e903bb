package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
)

const (
	codeInvalidRequestBody = "INVALID_REQUEST_BODY"
	codeUnauthenticated    = "UNAUTHENTICATED"
	codeNotFound           = "NOT_FOUND"
	codeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	codeInternalError      = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Kind      string            `json:"kind,omitempty"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindInvalidState, model.KindConflict:
		return http.StatusConflict
	case model.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError renders err. Domain errors keep their code, message and
// metadata; anything else is logged and reported as an internal error.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "request validation failed",
			Code:    string(model.CodeInvalidInput),
			Kind:    string(model.KindValidation),
			Details: details,
		})
		return
	}

	if e, ok := model.AsError(err); ok {
		writeJSON(w, statusFor(e.Kind), errorResponse{
			Error:     e.Error(),
			Code:      string(e.Code),
			Kind:      string(e.Kind),
			Retryable: e.Retryable,
			Details:   e.Metadata,
		})
		return
	}

	h.log.Error("request.failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// NotFound handles unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
}

// MethodNotAllowed handles routes matched with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
