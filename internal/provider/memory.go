package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arborsync/arbor/internal/domain"
)

// MemoryProvider is an in-process bookmark tree. It backs local mode and
// tests; production deployments swap in an adapter over the real host API.
//
// Events are dispatched synchronously after the internal lock is released.
// RemoveSubtree reports one Removed event per removed node, deepest first,
// so subscribers can maintain membership without re-walking the tree.
type MemoryProvider struct {
	mu         sync.RWMutex
	nodes      map[string]*memNode
	containers []string

	subMu   sync.Mutex
	subs    map[int]EventHandler
	nextSub int
}

type memNode struct {
	id        string
	parentID  string
	title     string
	url       string
	dateAdded time.Time
	children  []string
}

// NewMemoryProvider creates a provider with one top-level container per
// title. Containers cannot be removed or moved.
func NewMemoryProvider(containerTitles ...string) *MemoryProvider {
	p := &MemoryProvider{
		nodes: make(map[string]*memNode),
		subs:  make(map[int]EventHandler),
	}
	for _, title := range containerTitles {
		p.EnsureContainer(title)
	}
	return p
}

// EnsureContainer returns the id of the top-level container with the given
// title, creating it if absent.
func (p *MemoryProvider) EnsureContainer(title string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.containers {
		if p.nodes[id].title == title {
			return id
		}
	}
	id := uuid.NewString()
	p.nodes[id] = &memNode{id: id, title: title, dateAdded: time.Now()}
	p.containers = append(p.containers, id)
	return id
}

// Subscribe registers a change handler and returns an unsubscribe function.
func (p *MemoryProvider) Subscribe(h EventHandler) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	key := p.nextSub
	p.nextSub++
	p.subs[key] = h
	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.subs, key)
	}
}

func (p *MemoryProvider) emit(ev domain.TreeEvent) {
	p.subMu.Lock()
	handlers := make([]EventHandler, 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.subMu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// CreateNode creates a bookmark or folder under parentID.
func (p *MemoryProvider) CreateNode(ctx context.Context, parentID, title, url string, index int) (*domain.NativeNode, error) {
	p.mu.Lock()
	parent, ok := p.nodes[parentID]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("create under %s: %w", parentID, domain.ErrNotFound)
	}
	if parent.url != "" {
		p.mu.Unlock()
		return nil, fmt.Errorf("parent %s is not a folder", parentID)
	}

	n := &memNode{
		id:        uuid.NewString(),
		parentID:  parentID,
		title:     title,
		url:       url,
		dateAdded: time.Now(),
	}
	p.nodes[n.id] = n
	parent.children = insertChild(parent.children, n.id, index)
	out := p.toNodeLocked(n)
	p.mu.Unlock()

	p.emit(domain.TreeEvent{Kind: domain.EventCreated, ID: out.ID, Node: out, ParentID: parentID})
	return out, nil
}

// RemoveNode removes a single node. Folders must be empty.
func (p *MemoryProvider) RemoveNode(ctx context.Context, id string) error {
	p.mu.Lock()
	n, ok := p.nodes[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, domain.ErrNotFound)
	}
	if len(n.children) > 0 {
		p.mu.Unlock()
		return fmt.Errorf("remove %s: folder not empty", id)
	}
	if n.parentID == "" {
		p.mu.Unlock()
		return fmt.Errorf("remove %s: cannot remove a top-level container", id)
	}
	p.unlinkLocked(n)
	p.mu.Unlock()

	p.emit(domain.TreeEvent{Kind: domain.EventRemoved, ID: id, ParentID: n.parentID})
	return nil
}

// RemoveSubtree removes a node and all descendants.
func (p *MemoryProvider) RemoveSubtree(ctx context.Context, id string) error {
	p.mu.Lock()
	n, ok := p.nodes[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("remove subtree %s: %w", id, domain.ErrNotFound)
	}
	if n.parentID == "" {
		p.mu.Unlock()
		return fmt.Errorf("remove subtree %s: cannot remove a top-level container", id)
	}

	var removed []domain.TreeEvent
	var drop func(m *memNode)
	drop = func(m *memNode) {
		for _, cid := range m.children {
			if c, ok := p.nodes[cid]; ok {
				drop(c)
			}
		}
		delete(p.nodes, m.id)
		removed = append(removed, domain.TreeEvent{Kind: domain.EventRemoved, ID: m.id, ParentID: m.parentID})
	}
	drop(n)
	if parent, ok := p.nodes[n.parentID]; ok {
		parent.children = removeChild(parent.children, id)
	}
	p.mu.Unlock()

	for _, ev := range removed {
		p.emit(ev)
	}
	return nil
}

// UpdateNode changes title and/or url.
func (p *MemoryProvider) UpdateNode(ctx context.Context, id string, title, url *string) (*domain.NativeNode, error) {
	p.mu.Lock()
	n, ok := p.nodes[id]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
	}
	if url != nil && n.url == "" && *url != "" {
		p.mu.Unlock()
		return nil, fmt.Errorf("update %s: cannot set a url on a folder", id)
	}
	if title != nil {
		n.title = *title
	}
	if url != nil {
		n.url = *url
	}
	out := p.toNodeLocked(n)
	p.mu.Unlock()

	p.emit(domain.TreeEvent{Kind: domain.EventChanged, ID: id, Title: out.Title, URL: out.URL})
	return out, nil
}

// MoveNode reparents a node.
func (p *MemoryProvider) MoveNode(ctx context.Context, id, parentID string, index int) (*domain.NativeNode, error) {
	p.mu.Lock()
	n, ok := p.nodes[id]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("move %s: %w", id, domain.ErrNotFound)
	}
	target, ok := p.nodes[parentID]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("move %s to %s: %w", id, parentID, domain.ErrNotFound)
	}
	if target.url != "" {
		p.mu.Unlock()
		return nil, fmt.Errorf("move %s: target %s is not a folder", id, parentID)
	}
	if n.parentID == "" {
		p.mu.Unlock()
		return nil, fmt.Errorf("move %s: cannot move a top-level container", id)
	}
	// The provider itself refuses a move into the node's own subtree.
	for anc := target; anc != nil; anc = p.nodes[anc.parentID] {
		if anc.id == id {
			p.mu.Unlock()
			return nil, fmt.Errorf("move %s into %s: %w", id, parentID, domain.ErrCycle)
		}
		if anc.parentID == "" {
			break
		}
	}

	oldParent := n.parentID
	if prev, ok := p.nodes[oldParent]; ok {
		prev.children = removeChild(prev.children, id)
	}
	n.parentID = parentID
	target.children = insertChild(target.children, id, index)
	out := p.toNodeLocked(n)
	p.mu.Unlock()

	p.emit(domain.TreeEvent{Kind: domain.EventMoved, ID: id, OldParentID: oldParent, ParentID: parentID})
	return out, nil
}

// GetNode returns a node without children.
func (p *MemoryProvider) GetNode(ctx context.Context, id string) (*domain.NativeNode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, ok := p.nodes[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, domain.ErrNotFound)
	}
	return p.toNodeLocked(n), nil
}

// GetChildren returns the ordered direct children of id.
func (p *MemoryProvider) GetChildren(ctx context.Context, id string) ([]*domain.NativeNode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, ok := p.nodes[id]
	if !ok {
		return nil, fmt.Errorf("children of %s: %w", id, domain.ErrNotFound)
	}
	out := make([]*domain.NativeNode, 0, len(n.children))
	for _, cid := range n.children {
		if c, ok := p.nodes[cid]; ok {
			out = append(out, p.toNodeLocked(c))
		}
	}
	return out, nil
}

// GetSubtree returns the node with its full descendant tree populated.
func (p *MemoryProvider) GetSubtree(ctx context.Context, id string) (*domain.NativeNode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n, ok := p.nodes[id]
	if !ok {
		return nil, fmt.Errorf("subtree of %s: %w", id, domain.ErrNotFound)
	}
	return p.buildSubtreeLocked(n), nil
}

// GetTree returns the top-level containers with full subtrees.
func (p *MemoryProvider) GetTree(ctx context.Context) ([]*domain.NativeNode, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*domain.NativeNode, 0, len(p.containers))
	for _, id := range p.containers {
		if n, ok := p.nodes[id]; ok {
			out = append(out, p.buildSubtreeLocked(n))
		}
	}
	return out, nil
}

func (p *MemoryProvider) unlinkLocked(n *memNode) {
	if parent, ok := p.nodes[n.parentID]; ok {
		parent.children = removeChild(parent.children, n.id)
	}
	delete(p.nodes, n.id)
}

func (p *MemoryProvider) toNodeLocked(n *memNode) *domain.NativeNode {
	return &domain.NativeNode{
		ID:        n.id,
		ParentID:  n.parentID,
		Title:     n.title,
		URL:       n.url,
		Index:     p.indexOfLocked(n),
		DateAdded: n.dateAdded,
	}
}

func (p *MemoryProvider) indexOfLocked(n *memNode) int {
	parent, ok := p.nodes[n.parentID]
	if !ok {
		return 0
	}
	for i, cid := range parent.children {
		if cid == n.id {
			return i
		}
	}
	return 0
}

func (p *MemoryProvider) buildSubtreeLocked(n *memNode) *domain.NativeNode {
	out := p.toNodeLocked(n)
	for _, cid := range n.children {
		if c, ok := p.nodes[cid]; ok {
			out.Children = append(out.Children, p.buildSubtreeLocked(c))
		}
	}
	return out
}

func insertChild(children []string, id string, index int) []string {
	if index == AppendIndex || index >= len(children) {
		return append(children, id)
	}
	if index < 0 {
		index = 0
	}
	children = append(children, "")
	copy(children[index+1:], children[index:])
	children[index] = id
	return children
}

func removeChild(children []string, id string) []string {
	for i, cid := range children {
		if cid == id {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}
