package analyzer

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// tagKeywords maps a derived tag to the substrings that imply it.
var tagKeywords = map[string][]string{
	"go":         {"golang", " go ", "goroutine"},
	"javascript": {"javascript", "node.js", "nodejs", "typescript"},
	"python":     {"python", "pypi"},
	"rust":       {"rustlang", " rust ", "cargo"},
	"docker":     {"docker", "container image"},
	"kubernetes": {"kubernetes", "k8s", "kubectl"},
	"database":   {"postgres", "mysql", "sqlite", "redis", "database"},
	"security":   {"security", "vulnerability", "cve-", "encryption"},
	"tutorial":   {"tutorial", "getting started", "how to", "guide"},
	"reference":  {"reference", "documentation", "api docs", "manual"},
}

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descRe  = regexp.MustCompile(`(?is)<meta\s+name=["']description["']\s+content=["']([^"']*)["']`)
	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	wsRe    = regexp.MustCompile(`\s+`)
)

// HeuristicAnalyzer derives summary and tags from page text with keyword
// matching. It is the offline fallback; a model-backed implementation can
// replace it behind the same interface.
type HeuristicAnalyzer struct {
	maxSummaryLen int
}

// NewHeuristic creates the keyword analyzer.
func NewHeuristic() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{maxSummaryLen: 280}
}

// Analyze extracts a summary from the page description or leading text and
// tags from keyword hits. Confidence grows with the number of distinct
// matches and is capped below model-grade certainty.
func (a *HeuristicAnalyzer) Analyze(ctx context.Context, content, hint string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := a.summarize(content, hint)
	lower := strings.ToLower(content + " " + hint)

	var tags []string
	for tag, needles := range tagKeywords {
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)

	confidence := 0.2 + 0.1*float64(len(tags))
	if confidence > 0.7 {
		confidence = 0.7
	}

	return &Result{
		Summary:    summary,
		Tags:       tags,
		Confidence: confidence,
		Difficulty: difficulty(lower),
	}, nil
}

// summarize prefers the meta description, falls back to the title tag, then
// to the leading stripped text, then to the hint.
func (a *HeuristicAnalyzer) summarize(content, hint string) string {
	if m := descRe.FindStringSubmatch(content); m != nil {
		return a.clip(cleanText(m[1]))
	}
	if m := titleRe.FindStringSubmatch(content); m != nil {
		if t := cleanText(m[1]); t != "" {
			return a.clip(t)
		}
	}
	if text := cleanText(tagRe.ReplaceAllString(content, " ")); text != "" {
		return a.clip(text)
	}
	return a.clip(hint)
}

func (a *HeuristicAnalyzer) clip(s string) string {
	if len(s) <= a.maxSummaryLen {
		return s
	}
	return strings.TrimSpace(s[:a.maxSummaryLen])
}

func cleanText(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func difficulty(lower string) string {
	switch {
	case strings.Contains(lower, "advanced") || strings.Contains(lower, "internals") || strings.Contains(lower, "deep dive"):
		return "advanced"
	case strings.Contains(lower, "beginner") || strings.Contains(lower, "getting started") || strings.Contains(lower, "introduction"):
		return "beginner"
	default:
		return ""
	}
}
