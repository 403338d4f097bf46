package tree

import (
	"context"
	"strings"

	"github.com/arborsync/arbor/internal/domain"
)

// ManagedTree returns the full managed subtree rooted at the root folder.
func (s *Service) ManagedTree(ctx context.Context) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	return s.provider.GetSubtree(ctx, s.RootID())
}

// Children returns the ordered direct children of a managed node.
func (s *Service) Children(ctx context.Context, id string) ([]*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if id == "" {
		id = s.RootID()
	}
	if err := s.ensureManaged(ctx, id); err != nil {
		return nil, err
	}
	return s.provider.GetChildren(ctx, id)
}

// Search returns managed nodes whose title or url contains the query,
// case-insensitive. The search never leaves the managed subtree.
func (s *Service) Search(ctx context.Context, query string) ([]*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	sub, err := s.provider.GetSubtree(ctx, s.RootID())
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var out []*domain.NativeNode
	var walk func(n *domain.NativeNode)
	walk = func(n *domain.NativeNode) {
		if n.ID != s.RootID() {
			if strings.Contains(strings.ToLower(n.Title), q) ||
				strings.Contains(strings.ToLower(n.URL), q) {
				flat := *n
				flat.Children = nil
				out = append(out, &flat)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(sub)
	return out, nil
}
