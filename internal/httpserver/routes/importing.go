package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/httpserver/handlers"
	"github.com/arborsync/arbor/internal/httpserver/mw"
)

func init() { Register(registerImporting) }

// Import endpoints are rate limited on top of the usual guards: a misfiring
// client retrying a locked import should back off, not hammer the lock.
func registerImporting(r chi.Router, d deps.Deps) {
	guarded := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             5,
			RefillPerIPPerMin: 10,
			MaxEntries:        1024,
			SweepInterval:     time.Minute,
			IdleTTL:           15 * time.Minute,
			TrustProxy:        d.TrustProxy,
		}),
	)

	guarded.Post("/import/full", handlers.FullImport(d))
	guarded.Post("/import/reimport", handlers.SmartReimport(d))
	guarded.Post("/import/batch", handlers.StartBatch(d))
	guarded.Get("/import/batch", handlers.BatchStatus(d))
	guarded.Delete("/import/batch", handlers.CancelBatch(d))
	guarded.Post("/enrich", handlers.Enrich(d))
}
