package analyzer

import (
	"context"
	"fmt"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/tree"
)

// EnrichResult reports one enrichment pass.
type EnrichResult struct {
	Analyzed int      `json:"analyzed"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Enricher walks the managed subtree and fills in AI fields for bookmarks
// that have none yet. Per-bookmark failures are collected, never fatal.
type Enricher struct {
	tree     *tree.Service
	meta     *metadata.Store
	analyzer Analyzer
	fetcher  *Fetcher
	log      logger.Logger
}

// NewEnricher creates the enrichment pass.
func NewEnricher(t *tree.Service, meta *metadata.Store, a Analyzer, f *Fetcher, log logger.Logger) *Enricher {
	return &Enricher{
		tree:     t,
		meta:     meta,
		analyzer: a,
		fetcher:  f,
		log:      log,
	}
}

// Run analyzes every managed bookmark whose metadata has no AI summary yet.
// A page that cannot be fetched is analyzed from its title alone.
func (e *Enricher) Run(ctx context.Context) (*EnrichResult, error) {
	sub, err := e.tree.ManagedTree(ctx)
	if err != nil {
		return nil, err
	}

	res := &EnrichResult{}
	var walk func(n *domain.NativeNode)
	walk = func(n *domain.NativeNode) {
		for _, c := range n.Children {
			if c.IsFolder() {
				walk(c)
				continue
			}
			if err := ctx.Err(); err != nil {
				return
			}
			e.enrichOne(ctx, c, res)
		}
	}
	walk(sub)

	e.log.Info("enrichment pass finished",
		logger.Int("analyzed", res.Analyzed),
		logger.Int("skipped", res.Skipped),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}

func (e *Enricher) enrichOne(ctx context.Context, n *domain.NativeNode, res *EnrichResult) {
	if m, ok := e.meta.Get(n.ID); ok && m.AISummary != "" {
		res.Skipped++
		return
	}

	content, err := e.fetcher.Fetch(ctx, n.URL)
	if err != nil {
		e.log.Debug("falling back to title-only analysis",
			logger.String("url", n.URL),
			logger.Error(err))
		content = ""
	}

	result, err := e.analyzer.Analyze(ctx, content, n.Title)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("analyze %q: %v", n.Title, err))
		return
	}

	e.meta.Set(n.ID, domain.MetadataPatch{
		AISummary:    &result.Summary,
		AITags:       &result.Tags,
		AIConfidence: &result.Confidence,
		AIDifficulty: &result.Difficulty,
	})
	res.Analyzed++
}
