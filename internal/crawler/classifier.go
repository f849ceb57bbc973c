package crawler

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/danielmulder/webpiper/internal/model"
	"github.com/danielmulder/webpiper/internal/urlutil"
)

// skippedSchemes are href prefixes that never yield a crawlable URL.
var skippedSchemes = []string{
	"mailto:",
	"tel:",
	"javascript:",
	"data:",
	"ftp:",
}

// ExtractedLinks is the classified output of one page.
type ExtractedLinks struct {
	// Internal links share the crawl target's host. Canonical reports which
	// of them are in fetchable form; the rest are recorded but never queued.
	Internal []model.Link

	// External links point at other hosts. Recorded, never followed.
	External []model.Link
}

// ExtractLinks parses HTML and classifies every anchor on the page.
// pageURL is the address the content was fetched from; base is the
// scheme://host origin of the crawl target.
//
// Parse errors yield an empty result: x/net/html recovers from almost
// anything, so a hard failure means the content was not HTML at all.
func ExtractLinks(content, pageURL, base string) ExtractedLinks {
	var out ExtractedLinks

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return out
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if link, ok := classifyAnchor(n, pageURL, base); ok {
				if link.IsExternal {
					out.External = append(out.External, link)
				} else {
					out.Internal = append(out.Internal, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out
}

// classifyAnchor turns one <a> element into a Link, or reports false for
// anchors that cannot produce a URL (no href, fragment-only, non-web scheme).
func classifyAnchor(n *html.Node, pageURL, base string) (model.Link, bool) {
	var href, rel string
	for _, attr := range n.Attr {
		switch attr.Key {
		case "href":
			href = strings.TrimSpace(attr.Val)
		case "rel":
			rel = attr.Val
		}
	}

	if href == "" || strings.HasPrefix(href, "#") {
		return model.Link{}, false
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return model.Link{}, false
		}
	}

	target := urlutil.Normalize(pageURL, href)
	// Anchors pointing at static assets are not page links at all; they are
	// dropped before classification, internal and external alike.
	if !urlutil.IsAllowedExtension(target) {
		return model.Link{}, false
	}

	return model.Link{
		SourceURL:  pageURL,
		TargetURL:  target,
		Anchor:     anchorText(n),
		Rel:        rel,
		IsExternal: !urlutil.IsInternal(target, base),
	}, true
}

// anchorText collects the visible text inside an anchor, whitespace-collapsed.
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
