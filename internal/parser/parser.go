// Package parser turns document Markdown into the plain text, headings and
// tags the catalog indexes. Content is never rewritten; parsing is
// read-only and lenient.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

var md = goldmark.New()

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Text        string
	Headings    []string
	Tags        []string
}

// Parse extracts frontmatter, plain text, headings and tags from raw
// Markdown bytes. It never fails on malformed input.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	src := []byte(body)

	w := &walker{src: src}
	_ = ast.Walk(md.Parser().Parse(text.NewReader(src)), w.visit)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Text:        strings.TrimSpace(w.text.String()),
		Headings:    w.headings,
		Tags:        extractTags(w.prose.String(), fm),
	}
}

// Excerpt returns the first n runes of the plain text with whitespace
// collapsed, suffixed with "..." when cut.
func Excerpt(data []byte, n int) string {
	flat := strings.Join(strings.Fields(Parse(data).Text), " ")
	if utf8.RuneCountInString(flat) <= n {
		return flat
	}
	return strings.TrimSpace(string([]rune(flat)[:n])) + "..."
}

type walker struct {
	src      []byte
	text     bytes.Buffer // everything readable, code included
	prose    bytes.Buffer // text outside code, scanned for tags
	heading  *bytes.Buffer
	headings []string
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.heading = &bytes.Buffer{}
		} else {
			if h := strings.TrimSpace(w.heading.String()); h != "" {
				w.headings = append(w.headings, h)
			}
			w.heading = nil
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.text.Write(seg.Value(w.src))
			}
		}
	case *ast.CodeSpan:
		if entering {
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					w.text.Write(t.Segment.Value(w.src))
				}
			}
			w.text.WriteByte(' ')
		}
		return ast.WalkSkipChildren, nil
	case *ast.AutoLink:
		if entering {
			w.write(node.Label(w.src))
		}
	case *ast.Text:
		if entering {
			w.write(node.Segment.Value(w.src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.write([]byte{'\n'})
			}
		}
	case *ast.String:
		if entering {
			w.write(node.Value)
		}
	}
	if !entering && n.Type() == ast.TypeBlock {
		w.text.WriteByte('\n')
		w.prose.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (w *walker) write(b []byte) {
	w.text.Write(b)
	w.prose.Write(b)
	if w.heading != nil {
		w.heading.Write(b)
	}
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the Markdown body. Without valid frontmatter the whole
// input is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// extractTags collects #tags from prose and from a frontmatter "tags" list,
// frontmatter first, without duplicates.
func extractTags(prose string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if list, ok := fm["tags"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(strings.TrimSpace(s))
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(prose, -1) {
		add(m[1])
	}
	return out
}
