package tree

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/index"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/provider"
	"github.com/arborsync/arbor/internal/store"
)

// Service owns the managed subtree boundary: one designated folder inside
// the externally-owned bookmark tree. It enforces that every operation
// stays inside that boundary, keeps the id-membership cache in sync with
// its own writes, and fans out typed change events unless a bulk operation
// is in flight.
type Service struct {
	provider  provider.Provider
	store     store.Store
	meta      *metadata.Store
	log       logger.Logger
	rootTitle string
	lockTTL   time.Duration

	cache *index.Membership
	hub   *hub

	mu     sync.RWMutex
	rootID string

	initialized atomic.Bool
	suppressed  atomic.Bool
	unsubscribe func()
}

// New creates an uninitialized tree service. rootTitle is the designated
// name of the managed root folder.
func New(p provider.Provider, st store.Store, meta *metadata.Store, log logger.Logger, rootTitle string) *Service {
	return &Service{
		provider:  p,
		store:     st,
		meta:      meta,
		log:       log,
		rootTitle: rootTitle,
		lockTTL:   domain.LockTTL,
		cache:     index.NewMembership(),
		hub:       newHub(),
	}
}

// Initialize loads or (re)creates the managed root, cleans up ghost
// subtrees left behind by interrupted imports, rebuilds the membership
// cache and starts consuming provider events.
func (s *Service) Initialize(ctx context.Context) error {
	rootID, err := s.adoptRoot(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rootID = rootID
	s.mu.Unlock()

	if err := s.store.SaveRootID(ctx, rootID); err != nil {
		return fmt.Errorf("failed to persist root id: %w", err)
	}

	if err := s.ghostCleanup(ctx); err != nil {
		// Cleanup failures are not fatal: a later initialize retries.
		s.log.Warn("ghost cleanup failed", logger.Error(err))
	}

	if err := s.RebuildCache(ctx); err != nil {
		return err
	}

	s.unsubscribe = s.provider.Subscribe(s.handleEvent)
	s.initialized.Store(true)

	s.log.Info("tree service initialized",
		logger.String("root_id", rootID),
		logger.Int("managed_nodes", s.cache.Len()))
	return nil
}

// Close stops event consumption.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.initialized.Store(false)
}

// adoptRoot revalidates the persisted root id, searches the external
// containers for a folder carrying the designated title, or creates a new
// root as a last resort.
func (s *Service) adoptRoot(ctx context.Context) (string, error) {
	if id, err := s.store.RootID(ctx); err == nil && id != "" {
		node, err := s.provider.GetNode(ctx, id)
		if err == nil && node.IsFolder() && node.Title == s.rootTitle {
			return id, nil
		}
		s.log.Warn("persisted root id is no longer valid, re-adopting",
			logger.String("root_id", id))
	} else if err != nil {
		return "", fmt.Errorf("failed to read persisted root id: %w", err)
	}

	containers, err := s.provider.GetTree(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to enumerate containers: %w", err)
	}
	if len(containers) == 0 {
		return "", fmt.Errorf("provider has no top-level containers")
	}

	// Search the well-known containers' direct children by title.
	for _, container := range containers {
		for _, child := range container.Children {
			if child.IsFolder() && child.Title == s.rootTitle {
				s.log.Info("adopted existing root folder",
					logger.String("root_id", child.ID),
					logger.String("container", container.Title))
				return child.ID, nil
			}
		}
	}

	node, err := s.provider.CreateNode(ctx, containers[0].ID, s.rootTitle, "", provider.AppendIndex)
	if err != nil {
		return "", fmt.Errorf("failed to create root folder: %w", err)
	}
	s.log.Info("created new root folder", logger.String("root_id", node.ID))
	return node.ID, nil
}

// ghostCleanup removes the two classes of ghost subtrees: sibling
// duplicates of the root elsewhere in its parent container, and nested
// self-references (the root accidentally imported into itself).
func (s *Service) ghostCleanup(ctx context.Context) error {
	rootID := s.RootID()
	root, err := s.provider.GetNode(ctx, rootID)
	if err != nil {
		return err
	}

	siblings, err := s.provider.GetChildren(ctx, root.ParentID)
	if err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.ID == rootID || !sib.IsFolder() || sib.Title != s.rootTitle {
			continue
		}
		s.log.Warn("removing duplicate root ghost", logger.String("id", sib.ID))
		if err := s.provider.RemoveSubtree(ctx, sib.ID); err != nil {
			s.log.Warn("failed to remove duplicate root", logger.Error(err))
		}
	}

	sub, err := s.provider.GetSubtree(ctx, rootID)
	if err != nil {
		return err
	}
	s.pruneNestedGhosts(ctx, sub)
	return nil
}

// pruneNestedGhosts deletes the first folder at any depth whose title
// matches the designated root name and stops descending into that branch,
// so already-removed content is not re-scanned.
func (s *Service) pruneNestedGhosts(ctx context.Context, node *domain.NativeNode) {
	for _, child := range node.Children {
		if !child.IsFolder() {
			continue
		}
		if child.Title == s.rootTitle {
			s.log.Warn("removing nested root ghost", logger.String("id", child.ID))
			if err := s.provider.RemoveSubtree(ctx, child.ID); err != nil {
				s.log.Warn("failed to remove nested ghost", logger.Error(err))
			}
			continue
		}
		s.pruneNestedGhosts(ctx, child)
	}
}

// RebuildCache re-walks the managed subtree and replaces the membership set.
func (s *Service) RebuildCache(ctx context.Context) error {
	sub, err := s.provider.GetSubtree(ctx, s.RootID())
	if err != nil {
		return fmt.Errorf("failed to walk managed subtree: %w", err)
	}
	var ids []string
	collectIDs(sub, &ids)
	s.cache.Replace(ids)
	return nil
}

func collectIDs(n *domain.NativeNode, out *[]string) {
	*out = append(*out, n.ID)
	for _, c := range n.Children {
		collectIDs(c, out)
	}
}

// RootTitle returns the designated name of the managed root folder.
func (s *Service) RootTitle() string {
	return s.rootTitle
}

// RootID returns the managed root folder id.
func (s *Service) RootID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootID
}

// Contains reports whether id is cached as inside the managed subtree.
func (s *Service) Contains(id string) bool {
	return s.cache.Contains(id)
}

// ManagedIDs returns a copy of the cached membership set.
func (s *Service) ManagedIDs() []string {
	return s.cache.IDs()
}

// Suppress toggles the in-process suppression flag. It is set around bulk
// writes so engine-issued mutations do not fan out as callbacks; callers
// must clear it unconditionally on every exit path.
func (s *Service) Suppress(on bool) {
	s.suppressed.Store(on)
}

// Suppressed reports whether event fan-out is currently suppressed.
func (s *Service) Suppressed() bool {
	return s.suppressed.Load()
}

// quiet reports whether callbacks must be withheld: either this process is
// inside a bulk write, or some process holds a fresh import lock. In both
// cases events still update cache membership.
func (s *Service) quiet(ctx context.Context) bool {
	if s.suppressed.Load() {
		return true
	}
	lock, err := s.store.ImportLock(ctx)
	if err != nil {
		s.log.Warn("failed to read import lock during event handling", logger.Error(err))
		return false
	}
	return lock.Fresh(time.Now(), s.lockTTL)
}

// handleEvent maintains the membership cache for every provider event and
// fans out to subscribers only when no import is in flight.
func (s *Service) handleEvent(ev domain.TreeEvent) {
	ctx := context.Background()
	quiet := s.quiet(ctx)

	switch ev.Kind {
	case domain.EventCreated:
		if !s.cache.Contains(ev.ParentID) {
			return
		}
		s.cache.Add(ev.ID)
	case domain.EventRemoved:
		if !s.cache.Contains(ev.ID) {
			return
		}
		s.cache.Remove(ev.ID)
	case domain.EventChanged:
		if !s.cache.Contains(ev.ID) {
			return
		}
	case domain.EventMoved:
		// A move can cross the boundary in either direction; re-derive
		// membership by walking ancestors.
		inside := s.underRoot(ctx, ev.ID)
		ids := []string{ev.ID}
		if sub, err := s.provider.GetSubtree(ctx, ev.ID); err == nil {
			ids = ids[:0]
			collectIDs(sub, &ids)
		}
		wasInside := s.cache.Contains(ev.ID)
		if inside {
			s.cache.Add(ids...)
		} else {
			s.cache.Remove(ids...)
		}
		if !inside && !wasInside {
			return
		}
	}

	if quiet {
		return
	}
	s.hub.publish(ev)
}

// underRoot walks the ancestor chain to decide whether id currently lives
// inside the managed subtree.
func (s *Service) underRoot(ctx context.Context, id string) bool {
	rootID := s.RootID()
	for cur := id; cur != ""; {
		if cur == rootID {
			return true
		}
		node, err := s.provider.GetNode(ctx, cur)
		if err != nil {
			return false
		}
		cur = node.ParentID
	}
	return false
}

// ensureManaged validates that id is inside the managed subtree. Ids not
// yet cached (e.g. created while events were suppressed) are verified by
// walking the ancestor chain and cached on success.
func (s *Service) ensureManaged(ctx context.Context, id string) error {
	if s.cache.Contains(id) {
		return nil
	}
	if s.underRoot(ctx, id) {
		s.cache.Add(id)
		return nil
	}
	return fmt.Errorf("%s: %w", id, domain.ErrOutOfScope)
}

func (s *Service) requireInit() error {
	if !s.initialized.Load() {
		return domain.ErrNotInitialized
	}
	return nil
}

// pathOf computes the managed-relative logical path of a node: ancestor
// titles joined by the canonical separator, root excluded.
func (s *Service) pathOf(ctx context.Context, node *domain.NativeNode) (string, error) {
	rootID := s.RootID()
	var titles []string
	for cur := node.ParentID; cur != "" && cur != rootID; {
		parent, err := s.provider.GetNode(ctx, cur)
		if err != nil {
			return "", err
		}
		titles = append(titles, parent.Title)
		cur = parent.ParentID
	}
	path := ""
	for i := len(titles) - 1; i >= 0; i-- {
		path = domain.JoinPath(path, titles[i])
	}
	return path, nil
}
