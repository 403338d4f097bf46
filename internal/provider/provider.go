package provider

import (
	"context"

	"github.com/arborsync/arbor/internal/domain"
)

// AppendIndex asks the provider to place a new or moved node after its
// current last sibling.
const AppendIndex = -1

// EventHandler receives structural change events from the provider. The
// event stream is asynchronous relative to engine-issued mutations: a
// caller must never rely on seeing its own write echoed before the call
// returns.
type EventHandler func(domain.TreeEvent)

// Provider is the host bookmark tree the engine consumes. The engine never
// holds an authoritative copy of this tree; every read goes through here.
type Provider interface {
	// CreateNode creates a bookmark (url != "") or folder (url == "")
	// under parentID. index of AppendIndex appends.
	CreateNode(ctx context.Context, parentID, title, url string, index int) (*domain.NativeNode, error)

	// RemoveNode removes a single leaf node. Removing a non-empty folder
	// is an error; use RemoveSubtree.
	RemoveNode(ctx context.Context, id string) error

	// RemoveSubtree removes a node and all of its descendants.
	RemoveSubtree(ctx context.Context, id string) error

	// UpdateNode changes title and/or url. Nil fields are left untouched.
	UpdateNode(ctx context.Context, id string, title, url *string) (*domain.NativeNode, error)

	// MoveNode reparents a node. index of AppendIndex appends.
	MoveNode(ctx context.Context, id, parentID string, index int) (*domain.NativeNode, error)

	// GetNode returns a node without children.
	GetNode(ctx context.Context, id string) (*domain.NativeNode, error)

	// GetChildren returns the ordered direct children of id.
	GetChildren(ctx context.Context, id string) ([]*domain.NativeNode, error)

	// GetSubtree returns the node with its full descendant tree populated.
	GetSubtree(ctx context.Context, id string) (*domain.NativeNode, error)

	// GetTree returns the top-level containers with full subtrees.
	GetTree(ctx context.Context) ([]*domain.NativeNode, error)

	// Subscribe registers a change handler and returns an unsubscribe
	// function.
	Subscribe(h EventHandler) func()
}
