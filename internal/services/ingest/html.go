package ingest

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// chrome elements stripped before conversion; they carry navigation and
// boilerplate, not document content.
const strippedSelectors = "script, style, nav, footer, header, aside, noscript, iframe, form"

// NormalizeHTML converts an HTML page into markdown suitable for chunking.
func NormalizeHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(strippedSelectors).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	converter := md.NewConverter("", true, nil)
	markdown := converter.Convert(root)

	return strings.TrimSpace(markdown), nil
}
