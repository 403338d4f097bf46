package analyzer

import (
	"context"
	"strings"
	"testing"
)

func TestHeuristicAnalyzeSummary(t *testing.T) {
	ctx := context.Background()
	a := NewHeuristic()

	tests := []struct {
		name     string
		content  string
		hint     string
		expected string
	}{
		{
			name:     "meta description wins",
			content:  `<html><head><title>T</title><meta name="description" content="A Go tutorial site"></head></html>`,
			expected: "A Go tutorial site",
		},
		{
			name:     "title tag fallback",
			content:  `<html><head><title>  The Go Blog </title></head><body></body></html>`,
			expected: "The Go Blog",
		},
		{
			name:     "hint fallback when content is empty",
			content:  "",
			hint:     "saved bookmark",
			expected: "saved bookmark",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(ctx, tt.content, tt.hint)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if res.Summary != tt.expected {
				t.Errorf("Summary = %q, want %q", res.Summary, tt.expected)
			}
		})
	}
}

func TestHeuristicAnalyzeTags(t *testing.T) {
	ctx := context.Background()
	a := NewHeuristic()

	res, err := a.Analyze(ctx, "A golang tutorial covering docker and kubernetes deployments", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := map[string]bool{"go": false, "docker": false, "kubernetes": false, "tutorial": false}
	for _, tag := range res.Tags {
		if _, ok := want[tag]; ok {
			want[tag] = true
		}
	}
	for tag, found := range want {
		if !found {
			t.Errorf("expected tag %q missing from %v", tag, res.Tags)
		}
	}

	if res.Confidence <= 0.2 || res.Confidence > 0.7 {
		t.Errorf("Confidence = %v, want in (0.2, 0.7]", res.Confidence)
	}
}

func TestHeuristicSummaryClipped(t *testing.T) {
	ctx := context.Background()
	a := NewHeuristic()

	res, err := a.Analyze(ctx, strings.Repeat("word ", 200), "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.Summary) > a.maxSummaryLen {
		t.Errorf("Summary length = %d, want at most %d", len(res.Summary), a.maxSummaryLen)
	}
}

func TestHeuristicDifficulty(t *testing.T) {
	ctx := context.Background()
	a := NewHeuristic()

	beginner, _ := a.Analyze(ctx, "Getting started with Go", "")
	if beginner.Difficulty != "beginner" {
		t.Errorf("Difficulty = %q, want beginner", beginner.Difficulty)
	}
	advanced, _ := a.Analyze(ctx, "A deep dive into runtime internals", "")
	if advanced.Difficulty != "advanced" {
		t.Errorf("Difficulty = %q, want advanced", advanced.Difficulty)
	}
	neutral, _ := a.Analyze(ctx, "Weekly news roundup", "")
	if neutral.Difficulty != "" {
		t.Errorf("Difficulty = %q, want empty", neutral.Difficulty)
	}
}
