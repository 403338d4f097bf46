package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/httpserver/handlers"
	"github.com/arborsync/arbor/internal/httpserver/mw"
)

func init() { Register(registerTree) }

func registerTree(r chi.Router, d deps.Deps) {
	guarded := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))

	guarded.Get("/tree", handlers.ManagedTree(d))
	guarded.Get("/tree/children", handlers.Children(d))
	guarded.Get("/search", handlers.SearchTree(d))

	guarded.Post("/bookmarks", handlers.CreateBookmark(d))
	guarded.Delete("/bookmarks/{id}", handlers.DeleteBookmark(d))
	guarded.Post("/bookmarks/{id}/move", handlers.MoveBookmark(d))

	guarded.Post("/folders", handlers.CreateFolder(d))
	guarded.Delete("/folders/{id}", handlers.DeleteFolder(d))
	guarded.Post("/folders/{id}/move", handlers.MoveFolder(d))

	guarded.Patch("/nodes/{id}", handlers.UpdateNode(d))
}
