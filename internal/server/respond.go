package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/session"
)

var (
	errInvalidID   = errors.New("id must be a positive integer")
	errInvalidBody = errors.New("invalid request body")
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, datasource.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidID), errors.Is(err, errInvalidBody),
		errors.Is(err, session.ErrInvalidRaceID), errors.Is(err, session.ErrUnknownCommand),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrTooManySessions), errors.Is(err, datasource.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, datasource.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, datasource.ErrUpstreamFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var dsErr *datasource.DataSourceError
	if errors.As(err, &dsErr) {
		resp.Code = dsErr.Code
	}

	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, status, resp)
}
