// Package urlutil provides the URL normalization and classification rules
// used by the crawl engine. All functions are pure; they carry no state.
package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// allowedExtensions is the whitelist of path extensions that are considered
// crawlable server-rendered pages. The empty string is crucial: it admits
// URLs without any extension, which is the common case.
var allowedExtensions = map[string]struct{}{
	"": {}, ".htm": {}, ".html": {}, ".xhtml": {}, ".shtml": {}, ".shtm": {}, ".stm": {},
	".jhtml": {}, ".asp": {}, ".aspx": {}, ".ashx": {}, ".asmx": {}, ".axd": {}, ".mspx": {},
	".jsp": {}, ".jspx": {}, ".do": {}, ".action": {}, ".jsf": {}, ".faces": {},
	".php": {}, ".php3": {}, ".php4": {}, ".php5": {}, ".phtml": {},
	".pl": {}, ".cgi": {}, ".fcgi": {}, ".py": {}, ".rb": {}, ".rhtml": {}, ".dll": {},
	".cfm": {}, ".cfml": {}, ".yaws": {}, ".lasso": {}, ".nsf": {}, ".xsp": {}, ".hcsp": {}, ".adp": {},
}

// Normalize resolves href against base and returns a cleaned absolute URL:
// fragment stripped, empty path canonicalized to "/".
// It returns href unchanged if either input fails to parse.
func Normalize(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	abs := b.ResolveReference(u)
	abs.Fragment = ""
	if abs.Path == "" {
		abs.Path = "/"
	}
	return abs.String()
}

// BaseURL extracts the scheme://host origin of a URL. Bare hostnames are
// given an http scheme first, matching how seed URLs are typed by hand.
// It returns "" when no usable origin can be derived.
func BaseURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// IsAllowedExtension reports whether the URL's path extension is on the
// whitelist of crawlable page types. URLs without an extension are allowed.
func IsAllowedExtension(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	_, ok := allowedExtensions[ext]
	return ok
}

// IsValidLink reports whether a URL is a fetchable, canonical-form web URL:
// http(s) scheme, non-empty host, whitelisted extension, and neither query
// parameters nor a fragment.
func IsValidLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	if !IsAllowedExtension(raw) {
		return false
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return false
	}
	return true
}

// IsInternal reports whether raw lives on the same host as base.
func IsInternal(raw, base string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, b.Host)
}

// IsCanonical reports whether raw is an internal link the crawler should
// actually visit: internal to base and valid per IsValidLink. Same-host links
// that fail validity (query parameters, excluded extensions) are recorded but
// never re-queued.
func IsCanonical(raw, base string) bool {
	return IsInternal(raw, base) && IsValidLink(raw)
}
