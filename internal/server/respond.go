package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPStatus maps an error code to a response status.
func HTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.IsValidation(err) {
		return http.StatusBadRequest
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeExpired:
		return http.StatusGone
	case errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case errors.ErrCodeNetwork, errors.ErrCodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

// writeError hides the message of internal errors from clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	body := errorBody{
		Error:     string(errors.GetCode(err)),
		Message:   errors.UserMessage(err),
		RequestID: middleware.GetReqID(r.Context()),
	}
	switch {
	case status == http.StatusRequestEntityTooLarge:
		body.Error = "TOO_LARGE"
		body.Message = "request body too large"
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", body.RequestID)
		if body.Error == "" {
			body.Error = string(errors.ErrCodeInternal)
		}
		body.Message = http.StatusText(status)
	}
	s.writeJSON(w, status, body)
}
