package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/you/transitmap/internal/query"
	"github.com/you/transitmap/internal/store"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeQueryError maps query-path failures onto the stable error contract:
// invalid filter 400, missing snapshot 404, corrupt snapshot 500, anything
// else (backend unreadable) 503. Errors are never partially served.
func writeQueryError(w http.ResponseWriter, err error) {
	var ve *query.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Msg})
		return
	}

	if errors.Is(err, store.ErrNoSnapshot) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Snapshot not found",
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
		return
	}

	var de *store.DecodeError
	if errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to decode stored snapshot",
			Details: map[string]interface{}{
				"kind": de.Kind,
			},
		})
		return
	}

	writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
		Error: "Query backend unavailable",
		Details: map[string]interface{}{
			"internal": err.Error(),
		},
	})
}
