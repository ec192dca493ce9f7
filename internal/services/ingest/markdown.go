package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// TitleFromMarkdown returns the text of the first level-1 heading, or ""
// when the document has none.
func TitleFromMarkdown(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if textNode, ok := child.(*ast.Text); ok {
				sb.Write(textNode.Segment.Value(source))
			}
		}
		title = strings.TrimSpace(sb.String())
		return ast.WalkStop, nil
	})

	return title
}
