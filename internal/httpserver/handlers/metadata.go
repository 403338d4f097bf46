package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/httpserver/deps"
)

// GetMetadata returns the overlay record for one managed node. A managed
// node seen here for the first time gets a default record.
func GetMetadata(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, ok := d.Meta.Get(id)
		if !ok {
			if !d.Tree.Contains(id) {
				writeError(w, domain.ErrNotFound)
				return
			}
			m = d.Meta.CreateDefault(id, "external")
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// PatchMetadata merges a partial update into one record. Absent fields are
// left untouched.
func PatchMetadata(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !d.Tree.Contains(id) {
			writeError(w, domain.ErrOutOfScope)
			return
		}

		var patch domain.MetadataPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		writeJSON(w, http.StatusOK, d.Meta.Set(id, patch))
	}
}
