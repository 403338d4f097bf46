package handlers

import (
	"net/http"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/logger"
)

type batchStartedResponse struct {
	Queued int `json:"queued"`
}

type batchStatusResponse struct {
	State  string               `json:"state"`
	Job    *domain.ImportJob    `json:"job,omitempty"`
	Result *domain.ImportResult `json:"result,omitempty"`
}

// FullImport mirrors the external forest into the managed root in one
// blocking pass.
func FullImport(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Importer.FullImport(r.Context(), progressLogger(d))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// SmartReimport rebuilds the managed subtree while preserving AI and user
// metadata keyed by URL.
func SmartReimport(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Importer.SmartReimport(r.Context(), progressLogger(d))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// StartBatch queues a resumable chunked import and returns immediately.
func StartBatch(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queued, err := d.Importer.StartBatchImport(r.Context(), progressLogger(d))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, batchStartedResponse{Queued: queued})
	}
}

// BatchStatus reports the running job, or the final result of the last
// finished batch, 404 when neither exists.
func BatchStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := d.Importer.JobStatus(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if job != nil {
			writeJSON(w, http.StatusOK, batchStatusResponse{State: "running", Job: job})
			return
		}
		res, err := d.Importer.LastResult(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if res == nil {
			writeError(w, domain.ErrNoJob)
			return
		}
		writeJSON(w, http.StatusOK, batchStatusResponse{State: "done", Result: res})
	}
}

// CancelBatch drops the persisted job and releases the import lock.
func CancelBatch(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Importer.CancelBatch(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Enrich runs one AI enrichment pass over bookmarks without a summary.
func Enrich(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Enricher == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "enrichment disabled"})
			return
		}
		res, err := d.Enricher.Run(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func progressLogger(d deps.Deps) domain.ProgressFunc {
	return func(p domain.Progress) {
		d.Logger.Debug("import progress",
			logger.String("phase", p.Phase),
			logger.Int("current", p.Current))
	}
}
