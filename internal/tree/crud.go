package tree

import (
	"context"
	"fmt"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/provider"
)

// CreateBookmark creates a bookmark under parentID (the root when empty).
// source tags the lazily-created metadata record ("manual" from the UI,
// "import"/"batch" from the engine). The membership cache is updated
// synchronously before returning.
func (s *Service) CreateBookmark(ctx context.Context, parentID, title, url, source string) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if parentID == "" {
		parentID = s.RootID()
	}
	if err := s.ensureManaged(ctx, parentID); err != nil {
		return nil, err
	}

	node, err := s.provider.CreateNode(ctx, parentID, title, url, provider.AppendIndex)
	if err != nil {
		return nil, err
	}
	s.cache.Add(node.ID)
	s.meta.CreateDefault(node.ID, source)
	return node, nil
}

// CreateFolder creates a folder under parentID (the root when empty).
func (s *Service) CreateFolder(ctx context.Context, parentID, title string) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if parentID == "" {
		parentID = s.RootID()
	}
	if err := s.ensureManaged(ctx, parentID); err != nil {
		return nil, err
	}

	node, err := s.provider.CreateNode(ctx, parentID, title, "", provider.AppendIndex)
	if err != nil {
		return nil, err
	}
	s.cache.Add(node.ID)
	return node, nil
}

// UpdateNode changes title and/or url of a managed node. The root folder
// is immutable with respect to rename.
func (s *Service) UpdateNode(ctx context.Context, id string, title, url *string) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if id == s.RootID() {
		return nil, fmt.Errorf("cannot modify the root folder: %w", domain.ErrOutOfScope)
	}
	if err := s.ensureManaged(ctx, id); err != nil {
		return nil, err
	}
	return s.provider.UpdateNode(ctx, id, title, url)
}

// DeleteBookmark removes a managed bookmark and flags its metadata record
// as deleted with a snapshot sufficient to recreate it.
func (s *Service) DeleteBookmark(ctx context.Context, id string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if id == s.RootID() {
		return fmt.Errorf("cannot delete the root folder: %w", domain.ErrOutOfScope)
	}
	if err := s.ensureManaged(ctx, id); err != nil {
		return err
	}

	node, err := s.provider.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if node.IsFolder() {
		return fmt.Errorf("%s is a folder, use DeleteFolder", id)
	}
	path, err := s.pathOf(ctx, node)
	if err != nil {
		return err
	}

	if err := s.provider.RemoveNode(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	s.meta.MarkDeleted(id, domain.Snapshot{
		Title:     node.Title,
		URL:       node.URL,
		ParentID:  node.ParentID,
		Path:      path,
		DateAdded: node.DateAdded,
	})
	return nil
}

// DeleteFolder removes a managed folder with its subtree. Contained
// bookmarks are flagged deleted with snapshots (they stay restorable from
// the trash); folder records are purged outright.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if id == s.RootID() {
		return fmt.Errorf("cannot delete the root folder: %w", domain.ErrOutOfScope)
	}
	if err := s.ensureManaged(ctx, id); err != nil {
		return err
	}

	sub, err := s.provider.GetSubtree(ctx, id)
	if err != nil {
		return err
	}
	if !sub.IsFolder() {
		return fmt.Errorf("%s is a bookmark, use DeleteBookmark", id)
	}
	basePath, err := s.pathOf(ctx, sub)
	if err != nil {
		return err
	}

	type doomed struct {
		node *domain.NativeNode
		path string
	}
	var bookmarks []doomed
	var folderIDs []string
	var all []string
	var walk func(n *domain.NativeNode, path string)
	walk = func(n *domain.NativeNode, path string) {
		all = append(all, n.ID)
		if n.IsFolder() {
			folderIDs = append(folderIDs, n.ID)
		} else {
			bookmarks = append(bookmarks, doomed{node: n, path: path})
		}
		for _, c := range n.Children {
			walk(c, domain.JoinPath(path, n.Title))
		}
	}
	walk(sub, basePath)

	if err := s.provider.RemoveSubtree(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(all...)

	for _, d := range bookmarks {
		s.meta.MarkDeleted(d.node.ID, domain.Snapshot{
			Title:     d.node.Title,
			URL:       d.node.URL,
			ParentID:  d.node.ParentID,
			Path:      d.path,
			DateAdded: d.node.DateAdded,
		})
	}
	if err := s.meta.Delete(ctx, folderIDs...); err != nil {
		return err
	}
	return nil
}

// MoveBookmark reparents a managed bookmark inside the subtree.
func (s *Service) MoveBookmark(ctx context.Context, id, parentID string, idx int) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if id == s.RootID() {
		return nil, fmt.Errorf("cannot move the root folder: %w", domain.ErrOutOfScope)
	}
	if err := s.ensureManaged(ctx, id); err != nil {
		return nil, err
	}
	if parentID == "" {
		parentID = s.RootID()
	}
	if err := s.ensureManaged(ctx, parentID); err != nil {
		return nil, err
	}
	return s.provider.MoveNode(ctx, id, parentID, idx)
}

// MoveFolder reparents a managed folder. The move is rejected when the
// target parent lies inside the moved folder's own descendant set.
func (s *Service) MoveFolder(ctx context.Context, id, parentID string, idx int) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	if id == s.RootID() {
		return nil, fmt.Errorf("cannot move the root folder: %w", domain.ErrOutOfScope)
	}
	if err := s.ensureManaged(ctx, id); err != nil {
		return nil, err
	}
	if parentID == "" {
		parentID = s.RootID()
	}
	if err := s.ensureManaged(ctx, parentID); err != nil {
		return nil, err
	}

	sub, err := s.provider.GetSubtree(ctx, id)
	if err != nil {
		return nil, err
	}
	var descendants []string
	collectIDs(sub, &descendants)
	for _, did := range descendants {
		if did == parentID {
			return nil, fmt.Errorf("move %s into %s: %w", id, parentID, domain.ErrCycle)
		}
	}

	return s.provider.MoveNode(ctx, id, parentID, idx)
}

// Restore recreates a soft-deleted bookmark from its snapshot under a
// brand-new native id, reattaches the old record's fields to the new id
// and purges the old record. Ids are never reused.
func (s *Service) Restore(ctx context.Context, oldID string) (*domain.NativeNode, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}

	m, ok := s.meta.Get(oldID)
	if !ok || m.Status != domain.StatusDeleted || m.Snapshot == nil {
		return nil, fmt.Errorf("no deleted record for %s: %w", oldID, domain.ErrNotFound)
	}
	snap := *m.Snapshot

	parentID := snap.ParentID
	if parentID == "" || !s.cache.Contains(parentID) {
		parentID = s.RootID()
	}

	node, err := s.provider.CreateNode(ctx, parentID, snap.Title, snap.URL, provider.AppendIndex)
	if err != nil {
		return nil, err
	}
	s.cache.Add(node.ID)

	restored := m.Clone()
	restored.ID = node.ID
	restored.Status = domain.StatusActive
	restored.Snapshot = nil
	restored.UpdatedAt = time.Now()
	s.meta.Insert(restored)

	if err := s.meta.Delete(ctx, oldID); err != nil {
		return node, err
	}
	return node, nil
}
