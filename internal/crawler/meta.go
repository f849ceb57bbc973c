package crawler

import "regexp"

// metaHeadWindow is how many leading bytes are scanned for a robots meta
// tag. The tag lives in <head>, so scanning the whole document is wasted
// work on large pages.
const metaHeadWindow = 5120

// The attribute order inside a meta tag is not fixed, so two patterns cover
// name-before-content and content-before-name.
var (
	noindexNameFirst    = regexp.MustCompile(`(?is)<meta[^>]+name\s*=\s*["']robots["'][^>]+content\s*=\s*["'][^"']*noindex[^"']*["']`)
	noindexContentFirst = regexp.MustCompile(`(?is)<meta[^>]+content\s*=\s*["'][^"']*noindex[^"']*["'][^>]+name\s*=\s*["']robots["']`)
)

// HasNoindex reports whether the page opts out of indexing via a robots meta
// tag. Only the head window is scanned; a regex scan is much cheaper than a
// full HTML parse for pages that will be discarded anyway.
func HasNoindex(content string) bool {
	if len(content) > metaHeadWindow {
		content = content[:metaHeadWindow]
	}
	return noindexNameFirst.MatchString(content) || noindexContentFirst.MatchString(content)
}
