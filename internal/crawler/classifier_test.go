package crawler

import (
	"testing"
)

const testBase = "http://example.test"

func TestExtractLinksClassification(t *testing.T) {
	t.Parallel()

	content := `<html><body>
		<a href="/about">About us</a>
		<a href="/contact" rel="nofollow">Contact</a>
		<a href="https://other.test/page">Elsewhere</a>
		<a href="/search?q=x">Search</a>
		<a href="#section">Jump</a>
		<a href="mailto:info@example.test">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a>No href</a>
	</body></html>`

	links := ExtractLinks(content, testBase+"/", testBase)

	if len(links.Internal) != 3 {
		t.Fatalf("Internal count = %d, want 3: %+v", len(links.Internal), links.Internal)
	}
	if len(links.External) != 1 {
		t.Fatalf("External count = %d, want 1: %+v", len(links.External), links.External)
	}

	byTarget := make(map[string]bool)
	for _, l := range links.Internal {
		byTarget[l.TargetURL] = true
		if l.SourceURL != testBase+"/" {
			t.Errorf("SourceURL = %q", l.SourceURL)
		}
		if l.IsExternal {
			t.Errorf("internal link %q flagged external", l.TargetURL)
		}
	}
	for _, want := range []string{
		testBase + "/about",
		testBase + "/contact",
		testBase + "/search?q=x",
	} {
		if !byTarget[want] {
			t.Errorf("missing internal link %q", want)
		}
	}

	if ext := links.External[0]; ext.TargetURL != "https://other.test/page" || !ext.IsExternal {
		t.Errorf("external link = %+v", ext)
	}
}

func TestExtractLinksNofollowRecorded(t *testing.T) {
	t.Parallel()

	content := `<a href="/a">follow</a><a href="/b" rel="nofollow">nofollow</a>`
	links := ExtractLinks(content, testBase+"/", testBase)

	if len(links.Internal) != 2 {
		t.Fatalf("Internal count = %d, want 2 (nofollow links are still recorded)", len(links.Internal))
	}

	var nofollow int
	for _, l := range links.Internal {
		if l.Nofollow() {
			nofollow++
			if l.TargetURL != testBase+"/b" {
				t.Errorf("nofollow on %q, want /b", l.TargetURL)
			}
		}
	}
	if nofollow != 1 {
		t.Errorf("nofollow count = %d, want 1", nofollow)
	}
}

func TestExtractLinksAnchorText(t *testing.T) {
	t.Parallel()

	content := `<a href="/a"><span>Read</span>  the
		<b>docs</b></a>`
	links := ExtractLinks(content, testBase+"/", testBase)

	if len(links.Internal) != 1 {
		t.Fatalf("Internal count = %d, want 1", len(links.Internal))
	}
	if got := links.Internal[0].Anchor; got != "Read the docs" {
		t.Errorf("Anchor = %q, want %q", got, "Read the docs")
	}
}

func TestExtractLinksRelativeResolution(t *testing.T) {
	t.Parallel()

	content := `<a href="sibling">s</a><a href="../up">u</a><a href="/root">r</a>`
	links := ExtractLinks(content, testBase+"/dir/page", testBase)

	byTarget := make(map[string]bool)
	for _, l := range links.Internal {
		byTarget[l.TargetURL] = true
	}
	for _, want := range []string{
		testBase + "/dir/sibling",
		testBase + "/up",
		testBase + "/root",
	} {
		if !byTarget[want] {
			t.Errorf("missing resolved link %q in %v", want, byTarget)
		}
	}
}

func TestExtractLinksFragmentStripped(t *testing.T) {
	t.Parallel()

	content := `<a href="/page#section">p</a>`
	links := ExtractLinks(content, testBase+"/", testBase)

	if len(links.Internal) != 1 {
		t.Fatalf("Internal count = %d, want 1", len(links.Internal))
	}
	if got := links.Internal[0].TargetURL; got != testBase+"/page" {
		t.Errorf("TargetURL = %q, want fragment stripped", got)
	}
}

func TestExtractLinksSkipsAssetExtensions(t *testing.T) {
	t.Parallel()

	content := `<html><body>
		<a href="/photo.jpg">Photo</a>
		<a href="/archive.zip">Download</a>
		<a href="https://other.test/logo.png">Logo</a>
		<a href="/about">About</a>
		<a href="/index.php">Index</a>
	</body></html>`

	links := ExtractLinks(content, testBase+"/", testBase)

	if len(links.Internal) != 2 {
		t.Fatalf("Internal count = %d, want 2 (assets dropped): %+v", len(links.Internal), links.Internal)
	}
	if len(links.External) != 0 {
		t.Fatalf("External count = %d, want 0 (external assets dropped too): %+v", len(links.External), links.External)
	}

	for _, l := range links.Internal {
		if l.TargetURL != testBase+"/about" && l.TargetURL != testBase+"/index.php" {
			t.Errorf("unexpected link recorded: %q", l.TargetURL)
		}
	}
}

func TestExtractLinksNotHTML(t *testing.T) {
	t.Parallel()

	links := ExtractLinks("just some text without markup", testBase+"/", testBase)
	if len(links.Internal) != 0 || len(links.External) != 0 {
		t.Errorf("links extracted from non-HTML: %+v", links)
	}
}
