package domain

import "time"

// NativeNode is the engine's view of a node in the externally-owned bookmark
// tree. The host provider is the only authority on these; the engine never
// stores them, it only caches which ids live inside the managed subtree.
type NativeNode struct {
	// ID is allocated by the provider and never reused.
	ID string

	// ParentID is empty for top-level containers.
	ParentID string

	// Title is the display name. The managed root is located by title.
	Title string

	// URL is empty for folders and containers.
	URL string

	// Index is the position among siblings.
	Index int

	// DateAdded is set once by the provider.
	DateAdded time.Time

	// Children is populated only by subtree/tree reads.
	Children []*NativeNode
}

// IsFolder reports whether the node is a folder (or container).
func (n *NativeNode) IsFolder() bool { return n.URL == "" }

// EventKind identifies a structural change reported by the provider.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventRemoved EventKind = "removed"
	EventChanged EventKind = "changed"
	EventMoved   EventKind = "moved"
)

// TreeEvent is a typed structural change event.
//
// Created carries Node. Removed carries ParentID (the former parent).
// Changed carries Title/URL (the new values). Moved carries OldParentID
// and ParentID (the new parent).
type TreeEvent struct {
	Kind        EventKind
	ID          string
	Node        *NativeNode
	ParentID    string
	OldParentID string
	Title       string
	URL         string
}
