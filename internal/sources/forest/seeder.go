package forest

import (
	"context"
	"fmt"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/provider"
)

// Target is the slice of the native forest the seeder writes into.
type Target interface {
	EnsureContainer(title string) string
	CreateNode(ctx context.Context, parentID, title, url string, index int) (*domain.NativeNode, error)
}

// Seeder populates a native forest from a parsed seed config. It exists to
// stand in for a real browser forest: deployments without one boot from a
// YAML file instead.
type Seeder struct {
	target Target
}

// NewSeeder creates a seeder writing into target.
func NewSeeder(target Target) *Seeder {
	return &Seeder{
		target: target,
	}
}

// Seed creates every container and its subtree. It returns the number of
// nodes created, containers excluded.
func (s *Seeder) Seed(ctx context.Context, config *ForestConfig) (int, error) {
	created := 0
	for _, container := range config.Containers {
		id := s.target.EnsureContainer(container.Title)
		n, err := s.seedChildren(ctx, id, container.Children)
		if err != nil {
			return created, fmt.Errorf("container %q: %w", container.Title, err)
		}
		created += n
	}
	return created, nil
}

func (s *Seeder) seedChildren(ctx context.Context, parentID string, nodes []SeedNode) (int, error) {
	created := 0
	for _, node := range nodes {
		if node.Title == "" && node.URL == "" {
			continue
		}
		n, err := s.target.CreateNode(ctx, parentID, node.Title, node.URL, provider.AppendIndex)
		if err != nil {
			return created, fmt.Errorf("node %q: %w", node.Title, err)
		}
		created++
		if len(node.Children) > 0 {
			sub, err := s.seedChildren(ctx, n.ID, node.Children)
			created += sub
			if err != nil {
				return created, err
			}
		}
	}
	return created, nil
}
