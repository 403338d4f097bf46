package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arborsync/arbor/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoJob):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfScope):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCycle), errors.Is(err, domain.ErrLocked):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
