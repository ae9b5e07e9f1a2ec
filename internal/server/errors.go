package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/orthofix/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

var statusByCode = map[errors.Code]int{
	errors.ErrCodeInvalidInput:      http.StatusBadRequest,
	errors.ErrCodeInvalidDiagram:    http.StatusBadRequest,
	errors.ErrCodeInvalidOptions:    http.StatusBadRequest,
	errors.ErrCodeLinkNotFound:      http.StatusNotFound,
	errors.ErrCodeSegmentNotFound:   http.StatusNotFound,
	errors.ErrCodeFileNotFound:      http.StatusNotFound,
	errors.ErrCodeCorruptConstraint: http.StatusUnprocessableEntity,
	errors.ErrCodeCache:             http.StatusServiceUnavailable,
	errors.ErrCodeTimeout:           http.StatusGatewayTimeout,
	errors.ErrCodeInternal:          http.StatusInternalServerError,
}

// StatusFor maps an error to an HTTP status.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	if status, ok := statusByCode[errors.GetCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "request_id", RequestIDFrom(r.Context()))
	}
	writeJSON(w, status, errorBody{
		Error:     errorDetail{Code: code, Message: errors.UserMessage(err)},
		RequestID: RequestIDFrom(r.Context()),
	})
}
