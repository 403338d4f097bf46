package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/logger"
)

// ListTrash returns every soft-deleted record still holding a snapshot.
func ListTrash(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Meta.Deleted())
	}
}

// RestoreTrash recreates a soft-deleted bookmark under a new native id.
func RestoreTrash(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oldID := chi.URLParam(r, "id")
		node, err := d.Tree.Restore(r.Context(), oldID)
		if err != nil {
			writeError(w, err)
			return
		}
		d.Logger.Info("bookmark restored",
			logger.String("old_id", oldID),
			logger.String("new_id", node.ID))
		writeJSON(w, http.StatusCreated, node)
	}
}

// PurgeTrash permanently drops a soft-deleted record.
func PurgeTrash(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, ok := d.Meta.Get(id)
		if !ok || m.Status != domain.StatusDeleted {
			writeError(w, domain.ErrNotFound)
			return
		}
		if err := d.Meta.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
