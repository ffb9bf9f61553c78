package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntags:\n  - go\n  - mdcal\n---\n# Hello\nBody text.\n")
	r := Parse(input)
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "mdcal" {
		t.Errorf("tags = %v, want [go mdcal]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("# Just a heading\nSome text.\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if len(r.Headings) != 1 || r.Headings[0] != "Just a heading" {
		t.Errorf("headings = %v", r.Headings)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if !strings.Contains(r.Text, "Body") {
		t.Errorf("text = %q, want body kept", r.Text)
	}
}

func TestParse_PlainText(t *testing.T) {
	input := []byte("# Plan\n\nShip **v2** by _Friday_.\n\n- one\n- two\n\n```\ncode line\n```\n")
	r := Parse(input)
	for _, want := range []string{"Plan", "Ship v2 by Friday.", "one", "two", "code line"} {
		if !strings.Contains(r.Text, want) {
			t.Errorf("text %q missing %q", r.Text, want)
		}
	}
	if strings.ContainsAny(r.Text, "*_`") {
		t.Errorf("markup left in text: %q", r.Text)
	}
}

func TestParse_Headings(t *testing.T) {
	r := Parse([]byte("# One\n\ntext\n\n## Two *bold*\n\n### \n"))
	if len(r.Headings) != 2 || r.Headings[0] != "One" || r.Headings[1] != "Two bold" {
		t.Errorf("headings = %v, want [One Two bold]", r.Headings)
	}
}

func TestParse_TagsSkipCode(t *testing.T) {
	r := Parse([]byte("Some text #beta and #alpha.\n\n```\n#notatag\n```\n\nInline `#nope` too.\n"))
	if len(r.Tags) != 2 || r.Tags[0] != "beta" || r.Tags[1] != "alpha" {
		t.Errorf("tags = %v, want [beta alpha]", r.Tags)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	tags := extractTags("Some text #beta and #alpha again.", fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestExcerpt(t *testing.T) {
	got := Excerpt([]byte("# Title\n\nfirst   line\nsecond line\n"), 100)
	if got != "Title first line second line" {
		t.Errorf("excerpt = %q", got)
	}
	cut := Excerpt([]byte("abcdefghij"), 4)
	if cut != "abcd..." {
		t.Errorf("cut excerpt = %q", cut)
	}
	if Excerpt(nil, 10) != "" {
		t.Error("empty input should give empty excerpt")
	}
}
