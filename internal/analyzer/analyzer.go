package analyzer

import "context"

// Result is what an analyzer derives from page content.
type Result struct {
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// Analyzer turns page content into summary/tags/confidence. It is consumed
// as a black box; hint carries optional context such as the bookmark title.
type Analyzer interface {
	Analyze(ctx context.Context, content, hint string) (*Result, error)
}
