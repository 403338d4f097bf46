package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/httpserver/handlers"
	"github.com/arborsync/arbor/internal/httpserver/mw"
)

func init() { Register(registerMetadata) }

func registerMetadata(r chi.Router, d deps.Deps) {
	guarded := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))

	guarded.Get("/metadata/{id}", handlers.GetMetadata(d))
	guarded.Patch("/metadata/{id}", handlers.PatchMetadata(d))

	guarded.Get("/trash", handlers.ListTrash(d))
	guarded.Post("/trash/{id}/restore", handlers.RestoreTrash(d))
	guarded.Delete("/trash/{id}", handlers.PurgeTrash(d))
}
