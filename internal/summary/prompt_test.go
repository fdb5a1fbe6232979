package summary

import (
	"strings"
	"testing"

	"ghtracker/internal/github"
	"ghtracker/internal/storage"
)

func TestBuildPromptContainsUpdates(t *testing.T) {
	batch := &github.UpdateBatch{
		RepoName: "golang/go",
		MergedPRs: []github.PRInfo{
			{ID: 1, Number: 101, Title: "fix scheduler race", URL: "https://github.com/golang/go/pull/101", Labels: []string{"bug"}},
		},
		OpenPRs: []github.PRInfo{
			{ID: 2, Number: 102, Title: "proposal: new builtin", URL: "https://github.com/golang/go/pull/102"},
		},
		Releases: []github.ReleaseInfo{
			{ID: 3, Tag: "go1.25.1", Name: "Go 1.25.1", URL: "https://github.com/golang/go/releases/tag/go1.25.1", Prerelease: true},
		},
		Keywords: []string{"runtime", "gc"},
	}

	p := buildPrompt(batch, nil)

	for _, want := range []string{
		"golang/go",
		"#101",
		"fix scheduler race",
		"[bug]",
		"https://github.com/golang/go/pull/101",
		"#102",
		"go1.25.1",
		"(预发布)",
		"runtime、gc",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestBuildPromptHistory(t *testing.T) {
	batch := &github.UpdateBatch{
		RepoName:  "golang/go",
		MergedPRs: []github.PRInfo{{ID: 1, Number: 1, Title: "x"}},
	}
	history := []storage.Summary{
		{Date: "2025-06-09", Content: "yesterday's summary"},
		{Date: "2025-06-08", Content: "older summary"},
	}

	p := buildPrompt(batch, history)
	if !strings.Contains(p, "[2025-06-09]\nyesterday's summary") {
		t.Fatalf("history entry missing from prompt")
	}
	if !strings.Contains(p, "最近2次") {
		t.Fatalf("history count missing from prompt")
	}

	// No history means no review section at all.
	if strings.Contains(buildPrompt(batch, nil), "历史回顾\n以下是") {
		t.Fatalf("empty history must not produce a review section")
	}
}

func TestBuildPromptTruncatesBodies(t *testing.T) {
	long := strings.Repeat("字", 500)
	batch := &github.UpdateBatch{
		RepoName:  "golang/go",
		MergedPRs: []github.PRInfo{{ID: 1, Number: 1, Title: "x", Body: long}},
	}
	p := buildPrompt(batch, nil)
	if strings.Contains(p, long) {
		t.Fatalf("PR body was not truncated")
	}
	if !strings.Contains(p, strings.Repeat("字", prBodyPreviewLen)+"...") {
		t.Fatalf("expected %d-rune preview with ellipsis", prBodyPreviewLen)
	}
}

func TestBuildDigestPrompt(t *testing.T) {
	p := buildDigestPrompt(
		[]string{"golang/go", "rust-lang/rust"},
		[]string{"go summary", "rust summary"},
	)
	for _, want := range []string{"## golang/go", "go summary", "## rust-lang/rust", "rust summary"} {
		if !strings.Contains(p, want) {
			t.Fatalf("digest prompt missing %q", want)
		}
	}
}
