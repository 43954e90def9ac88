package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// publishedMarkers are the phrases the creator site shows once a note has
// been accepted.
var publishedMarkers = []string{
	"发布成功",
	"笔记发布成功",
	"已发布",
	"published successfully",
}

// scanForPublished walks the rendered page and looks for a success marker
// in its visible text.
func scanForPublished(pageHTML string) (bool, string, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return false, "", err
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			for _, marker := range publishedMarkers {
				if strings.Contains(text, marker) {
					found = text
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found != "" {
		return true, found, nil
	}
	return false, "no success marker on page", nil
}
