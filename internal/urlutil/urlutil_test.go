package urlutil

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{
			name: "relative path resolved against base",
			base: "https://example.com/docs/",
			href: "guide",
			want: "https://example.com/docs/guide",
		},
		{
			name: "absolute href keeps its host",
			base: "https://example.com/",
			href: "https://other.test/page",
			want: "https://other.test/page",
		},
		{
			name: "fragment stripped",
			base: "https://example.com/",
			href: "/about#team",
			want: "https://example.com/about",
		},
		{
			name: "empty path becomes root",
			base: "https://example.com/page",
			href: "https://example.com",
			want: "https://example.com/",
		},
		{
			name: "parent traversal collapsed",
			base: "https://example.com/a/b/",
			href: "../c",
			want: "https://example.com/a/c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.base, tt.href); got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/deep/path?q=1", "https://example.com"},
		{"http://example.com:8080/", "http://example.com:8080"},
		{"example.com/page", "http://example.com"},
		{"", ""},
		{"http://exa mple.com/", ""},
	}

	for _, tt := range tests {
		if got := BaseURL(tt.raw); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsValidLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"plain page", "https://example.com/about", true},
		{"extensionless root", "https://example.com/", true},
		{"server-rendered extension", "https://example.com/index.php", true},
		{"query parameters rejected", "https://example.com/search?q=x", false},
		{"fragment rejected", "https://example.com/page#top", false},
		{"static asset rejected", "https://example.com/logo.png", false},
		{"mailto rejected", "mailto:user@example.com", false},
		{"missing host rejected", "https:///path", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsValidLink(tt.raw); got != tt.want {
				t.Errorf("IsValidLink(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsInternal(t *testing.T) {
	t.Parallel()

	base := "https://example.com"

	if !IsInternal("https://example.com/page", base) {
		t.Error("same-host URL should be internal")
	}
	if !IsInternal("https://EXAMPLE.com/page", base) {
		t.Error("host comparison should be case-insensitive")
	}
	if IsInternal("https://sub.example.com/page", base) {
		t.Error("subdomain should be external")
	}
	if IsInternal("https://other.test/", base) {
		t.Error("different host should be external")
	}
}

func TestIsCanonical(t *testing.T) {
	t.Parallel()

	base := "https://example.com"

	if !IsCanonical("https://example.com/about", base) {
		t.Error("internal valid link should be canonical")
	}
	if IsCanonical("https://example.com/search?q=x", base) {
		t.Error("internal link with query should not be canonical")
	}
	if IsCanonical("https://other.test/about", base) {
		t.Error("external link should not be canonical")
	}
}
