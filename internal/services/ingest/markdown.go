package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/respondeo/internal/models"
)

// ParseMarkdown splits a markdown document into paragraphs, one per
// top-level block. Headings, lists, tables, and code fences each produce
// their own paragraph; markdown carries no page numbers, so pages stay nil.
func ParseMarkdown(source []byte) []models.Paragraph {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	)
	doc := md.Parser().Parse(text.NewReader(source))

	var paragraphs []models.Paragraph
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		content := strings.TrimSpace(blockText(node, source))
		if content == "" {
			continue
		}
		paragraphs = append(paragraphs, models.Paragraph{Text: content})
	}
	return paragraphs
}

// blockText extracts the plain text of one top-level block
func blockText(node ast.Node, source []byte) string {
	switch n := node.(type) {
	case *ast.FencedCodeBlock:
		return linesText(n.Lines(), source)
	case *ast.CodeBlock:
		return linesText(n.Lines(), source)
	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if s := strings.TrimSpace(string(item.Text(source))); s != "" {
				items = append(items, "- "+s)
			}
		}
		return strings.Join(items, "\n")
	default:
		return string(node.Text(source))
	}
}

func linesText(lines *text.Segments, source []byte) string {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
	return sb.String()
}
