package config

import "net/url"

// SiteConfig holds per-site overrides for a single host.
// It lets one config file drive crawls against several properties with
// different politeness and authentication needs.
type SiteConfig struct {
	// Cookie is an HTTP cookie header value sent with every request to the
	// site. Format: "name=value" or "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global user-agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxPages overrides the global page cap for this site.
	// Zero means use the global value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// CrawlDelay overrides the global politeness delay, in seconds.
	CrawlDelaySeconds int `yaml:"crawlDelaySeconds,omitempty"`
}

// File represents the structure of the .webpiper configuration file.
type File struct {
	// Sites maps a hostname to its overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// HostOf extracts the hostname used as the Sites map key from a URL.
// Returns "" for unparsable input.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// GetSiteConfig returns the effective configuration for a host, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if site.CrawlDelaySeconds != 0 {
		result.CrawlDelaySeconds = site.CrawlDelaySeconds
	}
	if len(site.Headers) > 0 {
		// Copy before merging so the shared defaults map is never mutated.
		merged := make(map[string]string, len(result.Headers)+len(site.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	return result
}
