package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/util"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, v1.ErrorResponse{Success: false, Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrInvalidPosition):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNoOrganization), errors.Is(err, util.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrExportDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeErr renders err. Internal errors are logged and hidden from the client.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, model.ErrProvisioning):
		msg = "failed to create account"
		s.logger.Error(err, "Request failed", "method", r.Method, "path", r.URL.Path)
	case status == http.StatusInternalServerError:
		msg = "internal server error"
		s.logger.Error(err, "Request failed", "method", r.Method, "path", r.URL.Path)
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, model.ErrInvalidCredentials):
		msg = "unauthorized"
	}
	writeError(w, status, msg)
}
