// Package sanitize strips markup from untrusted text before it enters the
// prompt pipeline. Typed prompts and audio transcripts go through the same
// transform.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Strip removes HTML tags and markdown formatting, returning plain text.
// The transform is idempotent: stripping repeats until a fixed point, since
// code-block content comes out verbatim on the first pass and any markup it
// carried is only removed by the next one.
func Strip(s string) string {
	for i := 0; i < 10; i++ {
		out := stripOnce(s)
		if out == s {
			break
		}
		s = out
	}
	return s
}

func stripOnce(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")

	source := []byte(s)
	p := goldmark.DefaultParser()
	doc := p.Parse(text.NewReader(source))

	var b strings.Builder
	walkBlocks(doc, source, &b)
	return strings.TrimSpace(b.String())
}

func walkBlocks(node ast.Node, source []byte, b *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			writeLines(n.(interface{ Lines() *text.Segments }), source, b)
		case *ast.List, *ast.ListItem, *ast.Blockquote:
			walkBlocks(n, source, b)
		default:
			if c.Type() == ast.TypeBlock {
				collectInline(c, source, b)
				b.WriteString("\n")
			}
		}
	}
}

func writeLines(n interface{ Lines() *text.Segments }, source []byte, b *strings.Builder) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
}

func collectInline(node ast.Node, source []byte, b *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.CodeSpan:
			collectInline(n, source, b)
		case *ast.RawHTML:
			// dropped
		case *ast.AutoLink:
			b.Write(n.URL(source))
		default:
			collectInline(c, source, b)
		}
	}
}
