package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/arborsync/arbor/internal/domain"
)

func TestMemoryProviderCreateAndGet(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bookmarks Bar")
	barID := p.EnsureContainer("Bookmarks Bar")

	folder, err := p.CreateNode(ctx, barID, "Work", "", AppendIndex)
	if err != nil {
		t.Fatalf("CreateNode folder failed: %v", err)
	}
	if !folder.IsFolder() {
		t.Error("empty url node should be a folder")
	}

	bm, err := p.CreateNode(ctx, folder.ID, "Docs", "https://docs.example.com", AppendIndex)
	if err != nil {
		t.Fatalf("CreateNode bookmark failed: %v", err)
	}

	got, err := p.GetNode(ctx, bm.ID)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if got.ParentID != folder.ID || got.URL != "https://docs.example.com" {
		t.Errorf("unexpected node: %+v", got)
	}

	// Bookmarks cannot parent other nodes.
	if _, err := p.CreateNode(ctx, bm.ID, "nested", "https://x", AppendIndex); err == nil {
		t.Error("creating under a bookmark should fail")
	}
}

func TestMemoryProviderChildOrder(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bar")
	barID := p.EnsureContainer("Bar")

	first, _ := p.CreateNode(ctx, barID, "a", "https://a", AppendIndex)
	second, _ := p.CreateNode(ctx, barID, "b", "https://b", AppendIndex)
	third, _ := p.CreateNode(ctx, barID, "c", "https://c", 0)

	children, err := p.GetChildren(ctx, barID)
	if err != nil {
		t.Fatalf("GetChildren failed: %v", err)
	}
	wantOrder := []string{third.ID, first.ID, second.ID}
	if len(children) != 3 {
		t.Fatalf("children = %d, want 3", len(children))
	}
	for i, c := range children {
		if c.ID != wantOrder[i] {
			t.Errorf("children[%d] = %s, want %s", i, c.ID, wantOrder[i])
		}
		if c.Index != i {
			t.Errorf("children[%d].Index = %d, want %d", i, c.Index, i)
		}
	}
}

func TestMemoryProviderMoveCycleRefused(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bar")
	barID := p.EnsureContainer("Bar")

	outer, _ := p.CreateNode(ctx, barID, "outer", "", AppendIndex)
	inner, _ := p.CreateNode(ctx, outer.ID, "inner", "", AppendIndex)

	if _, err := p.MoveNode(ctx, outer.ID, inner.ID, AppendIndex); !errors.Is(err, domain.ErrCycle) {
		t.Errorf("moving a folder into its own subtree: err = %v, want ErrCycle", err)
	}

	// Moving into itself is also a cycle.
	if _, err := p.MoveNode(ctx, outer.ID, outer.ID, AppendIndex); !errors.Is(err, domain.ErrCycle) {
		t.Errorf("moving a folder into itself: err = %v, want ErrCycle", err)
	}
}

func TestMemoryProviderRemoveSubtreeEvents(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bar")
	barID := p.EnsureContainer("Bar")

	folder, _ := p.CreateNode(ctx, barID, "f", "", AppendIndex)
	child, _ := p.CreateNode(ctx, folder.ID, "c", "https://c", AppendIndex)

	var removed []string
	unsub := p.Subscribe(func(ev domain.TreeEvent) {
		if ev.Kind == domain.EventRemoved {
			removed = append(removed, ev.ID)
		}
	})
	defer unsub()

	if err := p.RemoveSubtree(ctx, folder.ID); err != nil {
		t.Fatalf("RemoveSubtree failed: %v", err)
	}

	// Deepest first: child before folder.
	if len(removed) != 2 || removed[0] != child.ID || removed[1] != folder.ID {
		t.Errorf("removed order = %v, want [%s %s]", removed, child.ID, folder.ID)
	}

	if _, err := p.GetNode(ctx, child.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("child still present after subtree removal: %v", err)
	}
}

func TestMemoryProviderRemoveNonEmptyFolder(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bar")
	barID := p.EnsureContainer("Bar")

	folder, _ := p.CreateNode(ctx, barID, "f", "", AppendIndex)
	if _, err := p.CreateNode(ctx, folder.ID, "c", "https://c", AppendIndex); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	if err := p.RemoveNode(ctx, folder.ID); err == nil {
		t.Error("RemoveNode on a non-empty folder should fail")
	}
}

func TestMemoryProviderContainersImmutable(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bar", "Other")
	barID := p.EnsureContainer("Bar")
	otherID := p.EnsureContainer("Other")

	if err := p.RemoveSubtree(ctx, barID); err == nil {
		t.Error("removing a container should fail")
	}
	if _, err := p.MoveNode(ctx, barID, otherID, AppendIndex); err == nil {
		t.Error("moving a container should fail")
	}

	// EnsureContainer is idempotent.
	if again := p.EnsureContainer("Bar"); again != barID {
		t.Errorf("EnsureContainer created a duplicate: %s != %s", again, barID)
	}
}

func TestMemoryProviderUnsubscribe(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider("Bar")
	barID := p.EnsureContainer("Bar")

	calls := 0
	unsub := p.Subscribe(func(ev domain.TreeEvent) { calls++ })

	if _, err := p.CreateNode(ctx, barID, "a", "https://a", AppendIndex); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	unsub()
	if _, err := p.CreateNode(ctx, barID, "b", "https://b", AppendIndex); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}
