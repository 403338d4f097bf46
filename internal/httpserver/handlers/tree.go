package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arborsync/arbor/internal/httpserver/deps"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/provider"
)

type createBookmarkRequest struct {
	ParentID string `json:"parent_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

type createFolderRequest struct {
	ParentID string `json:"parent_id"`
	Title    string `json:"title"`
}

type updateNodeRequest struct {
	Title *string `json:"title"`
	URL   *string `json:"url"`
}

type moveRequest struct {
	ParentID string `json:"parent_id"`
	Index    *int   `json:"index"`
}

// ManagedTree returns the whole managed subtree.
func ManagedTree(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := d.Tree.ManagedTree(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// Children lists the direct children of a managed node. An empty parent
// means the root.
func Children(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent := r.URL.Query().Get("parent")
		if parent == "" {
			parent = d.Tree.RootID()
		}
		children, err := d.Tree.Children(r.Context(), parent)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, children)
	}
}

// SearchTree matches managed nodes by title or URL substring.
func SearchTree(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter q"})
			return
		}
		results, err := d.Tree.Search(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

// CreateBookmark creates a bookmark under a managed parent.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookmarkRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Title == "" || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title and url are required"})
			return
		}
		node, err := d.Tree.CreateBookmark(r.Context(), req.ParentID, req.Title, req.URL, "api")
		if err != nil {
			writeError(w, err)
			return
		}
		d.Logger.Info("bookmark created",
			logger.String("id", node.ID),
			logger.String("title", node.Title))
		writeJSON(w, http.StatusCreated, node)
	}
}

// CreateFolder creates a folder under a managed parent.
func CreateFolder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createFolderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Title == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title is required"})
			return
		}
		node, err := d.Tree.CreateFolder(r.Context(), req.ParentID, req.Title)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, node)
	}
}

// UpdateNode changes a managed node's title and/or URL.
func UpdateNode(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateNodeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		node, err := d.Tree.UpdateNode(r.Context(), chi.URLParam(r, "id"), req.Title, req.URL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, node)
	}
}

// DeleteBookmark soft-deletes a managed bookmark.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Tree.DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteFolder removes a managed folder and its subtree.
func DeleteFolder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Tree.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MoveBookmark relocates a bookmark inside the managed subtree.
func MoveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		node, err := d.Tree.MoveBookmark(r.Context(), chi.URLParam(r, "id"), req.ParentID, moveIndex(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, node)
	}
}

// MoveFolder relocates a folder inside the managed subtree.
func MoveFolder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		node, err := d.Tree.MoveFolder(r.Context(), chi.URLParam(r, "id"), req.ParentID, moveIndex(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, node)
	}
}

func moveIndex(req moveRequest) int {
	if req.Index == nil {
		return provider.AppendIndex
	}
	return *req.Index
}
