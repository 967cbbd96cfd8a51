package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse fixture HTML: %v", err)
	}
	return doc
}

func pageURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse page URL %q: %v", raw, err)
	}
	return u
}

func TestExtractor_Run_MicroblogStructuralAttrs(t *testing.T) {
	html := `<html><body>
		<article data-entry-id="1" data-permalink-path="/janedoe/posts/4815"
			data-author-handle="janedoe" data-author-name="Jane Doe">
			<div data-testid="post-text">Shipping it today.</div>
			<img src="/media/photo.jpg">
		</article>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("article").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceMicroblog, doc, unit, pageURL(t, "https://microblog.example/home"))

	if rec.CanonicalURL != "https://microblog.example/janedoe/posts/4815" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
	if rec.AuthorName != "Jane Doe" {
		t.Errorf("Expected author name 'Jane Doe', got %q", rec.AuthorName)
	}
	if rec.AuthorHandle != "janedoe" {
		t.Errorf("Expected author handle 'janedoe', got %q", rec.AuthorHandle)
	}
	if rec.Body != "Shipping it today." {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
	if rec.MediaURL != "https://microblog.example/media/photo.jpg" {
		t.Errorf("Unexpected media URL: %s", rec.MediaURL)
	}
	if rec.Source != "microblog" {
		t.Errorf("Expected source tag 'microblog', got %q", rec.Source)
	}
}

func TestExtractor_Run_MicroblogTimestampAnchorFallback(t *testing.T) {
	// Attributes stripped; only the timestamp link carries the permalink.
	html := `<html><body>
		<article data-entry-id="2">
			<a href="/janedoe/posts/4816"><time datetime="2026-08-30">2h</time></a>
			<div class="post-body">Fallback body text.</div>
		</article>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("article").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceMicroblog, doc, unit, pageURL(t, "https://microblog.example/home"))

	if rec.CanonicalURL != "https://microblog.example/janedoe/posts/4816" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
	if rec.Body != "Fallback body text." {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
}

func TestExtractor_Run_CanonicalURLAlwaysAbsolute(t *testing.T) {
	// No permalink anywhere in the unit: canonical must fall back to the
	// page location and still parse as an absolute URL.
	html := `<html><head><title>timeline</title></head><body>
		<article data-entry-id="3"><div class="post-body">No links here.</div></article>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("article").First()
	extractor := NewExtractor()

	page := "https://microblog.example/home"
	rec := extractor.Run(source.SourceMicroblog, doc, unit, pageURL(t, page))

	if rec.CanonicalURL != page {
		t.Errorf("Expected page URL fallback %s, got %s", page, rec.CanonicalURL)
	}

	u, err := url.Parse(rec.CanonicalURL)
	if err != nil || !u.IsAbs() {
		t.Errorf("Canonical URL is not absolute: %q", rec.CanonicalURL)
	}
}

func TestExtractor_Run_SocialLabeledHeaderLink(t *testing.T) {
	html := `<html><head><title>feed</title></head><body>
		<div role="article">
			<header><a href="/janedoe">Jane Doe</a></header>
			<div data-testid="post-message">Hello from the feed.</div>
			<a href="/janedoe/posts/991">Yesterday</a>
		</div>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("[role='article']").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceSocial, doc, unit, pageURL(t, "https://social.example/"))

	if rec.AuthorName != "Jane Doe" {
		t.Errorf("Expected author name 'Jane Doe', got %q", rec.AuthorName)
	}
	if rec.AuthorHandle != "janedoe" {
		t.Errorf("Expected author handle 'janedoe', got %q", rec.AuthorHandle)
	}
	if rec.CanonicalURL != "https://social.example/janedoe/posts/991" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
	if rec.Body != "Hello from the feed." {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
}

func TestExtractor_Run_SocialSegmentFallbackAuthor(t *testing.T) {
	// No labeled profile link anywhere: the header link wraps an avatar image
	// with no text, and the only labeled link is a denylisted action. The
	// path segment has to stand in for both author fields.
	html := `<html><head><title>feed</title></head><body>
		<div role="article">
			<header><a href="/janedoe"><img src="/avatars/jd.png" class="avatar"></a></header>
			<a href="/janedoe">Follow</a>
			<div class="post-message">Segment fallback post.</div>
		</div>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("[role='article']").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceSocial, doc, unit, pageURL(t, "https://social.example/"))

	if rec.AuthorName != "janedoe" {
		t.Errorf("Expected segment-derived author name 'janedoe', got %q", rec.AuthorName)
	}
	if rec.AuthorHandle != "janedoe" {
		t.Errorf("Expected segment-derived author handle 'janedoe', got %q", rec.AuthorHandle)
	}
	if rec.Body != "Segment fallback post." {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
}

func TestExtractor_Run_SocialTitleAttribution(t *testing.T) {
	// Permalink page with zero profile links: the document title template is
	// the only author signal left.
	html := `<html><head><title>Jane Doe on SocialSite</title></head><body>
		<div role="article">
			<div class="post-message">Title attribution post.</div>
		</div>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("[role='article']").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceSocial, doc, unit, pageURL(t, "https://social.example/posts/5"))

	if rec.AuthorName != "Jane Doe" {
		t.Errorf("Expected title-derived author name 'Jane Doe', got %q", rec.AuthorName)
	}
	if rec.AuthorHandle != "" {
		t.Errorf("Expected empty author handle, got %q", rec.AuthorHandle)
	}
}

func TestExtractor_Run_PhotosMediaAndCaption(t *testing.T) {
	html := `<html><body>
		<article class="photo-card">
			<header><a href="/shutterbug">Shutter Bug</a></header>
			<a href="/p/Xy-12_Ab"><figure>
				<img srcset="/img/small.jpg 320w, /img/large.jpg 1080w" src="/img/small.jpg" alt="Sunset over the bay">
				<figcaption>Sunset over the bay</figcaption>
			</figure></a>
		</article>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find("article.photo-card").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourcePhotos, doc, unit, pageURL(t, "https://pics.example/explore"))

	if rec.MediaURL != "https://pics.example/img/large.jpg" {
		t.Errorf("Expected highest-resolution srcset candidate, got %s", rec.MediaURL)
	}
	if rec.CanonicalURL != "https://pics.example/p/Xy-12_Ab" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
	if rec.Body != "Sunset over the bay" {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
	if rec.AuthorHandle != "shutterbug" {
		t.Errorf("Expected author handle 'shutterbug', got %q", rec.AuthorHandle)
	}
}

func TestExtractor_Run_VideoPageLevelIdentity(t *testing.T) {
	// Page-level video extraction derives identity from the URL, not the
	// tree: the watch identifier is stable while on-page titles churn.
	html := `<html><head>
		<title>decorative title</title>
		<meta property="og:title" content="How To Solder">
	</head><body>
		<a href="/@makerlab">Maker Lab</a>
	</body></html>`

	doc := parseDoc(t, html)
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceVideo, doc, nil, pageURL(t, "https://video.example/watch?v=dQw4w9"))

	if rec.CanonicalURL != "https://video.example/watch?v=dQw4w9" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
	if rec.MediaURL != "https://i.video.example/vi/dQw4w9/hqdefault.jpg" {
		t.Errorf("Unexpected thumbnail URL: %s", rec.MediaURL)
	}
	if rec.Body != "How To Solder" {
		t.Errorf("Expected og:title body, got %q", rec.Body)
	}
	if rec.AuthorName != "Maker Lab" {
		t.Errorf("Expected channel author 'Maker Lab', got %q", rec.AuthorName)
	}
	if rec.AuthorHandle != "makerlab" {
		t.Errorf("Expected author handle 'makerlab', got %q", rec.AuthorHandle)
	}
}

func TestExtractor_Run_VideoListEntry(t *testing.T) {
	// A feed entry has no page-level identifier, so the scoped subtree
	// supplies everything: the title anchor carries permalink and title.
	html := `<html><body>
		<div class="video-entry">
			<a href="/watch/abc123"><img src="/thumbs/abc123.jpg">Epoxy Basics</a>
			<a href="/@makerlab">Maker Lab</a>
		</div>
	</body></html>`

	doc := parseDoc(t, html)
	unit := doc.Find(".video-entry").First()
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceVideo, doc, unit, pageURL(t, "https://video.example/feed"))

	if rec.CanonicalURL != "https://video.example/watch/abc123" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
	if rec.Body != "Epoxy Basics" {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
	if rec.MediaURL != "https://video.example/thumbs/abc123.jpg" {
		t.Errorf("Unexpected thumbnail URL: %s", rec.MediaURL)
	}
	if rec.AuthorName != "Maker Lab" {
		t.Errorf("Expected channel author 'Maker Lab', got %q", rec.AuthorName)
	}
}

func TestExtractor_Run_GenericPageMetadata(t *testing.T) {
	html := `<html><head>
		<title>Some Article</title>
		<meta property="og:description" content="An article about things.">
		<meta property="og:image" content="/cover.png">
		<meta property="og:url" content="https://news.example/articles/42">
		<meta name="author" content="Staff Writer">
	</head><body><p>body</p></body></html>`

	doc := parseDoc(t, html)
	extractor := NewExtractor()

	rec := extractor.Run(source.SourceGeneric, doc, nil, pageURL(t, "https://news.example/articles/42?ref=feed"))

	if rec.CanonicalURL != "https://news.example/articles/42" {
		t.Errorf("Expected og:url canonical, got %s", rec.CanonicalURL)
	}
	if rec.Body != "An article about things." {
		t.Errorf("Unexpected body: %q", rec.Body)
	}
	if rec.MediaURL != "https://news.example/cover.png" {
		t.Errorf("Unexpected media URL: %s", rec.MediaURL)
	}
	if rec.AuthorName != "Staff Writer" {
		t.Errorf("Expected author 'Staff Writer', got %q", rec.AuthorName)
	}
}

func TestExtractor_Run_UnknownSourceUsesGeneric(t *testing.T) {
	html := `<html><head><title>Plain Page</title></head><body><p>text</p></body></html>`

	doc := parseDoc(t, html)
	extractor := NewExtractor()

	rec := extractor.Run(source.Source("brand-new"), doc, nil, pageURL(t, "https://unknown.example/"))

	if rec.Source != "generic" {
		t.Errorf("Expected generic pipeline for unknown source, got %q", rec.Source)
	}
	if rec.CanonicalURL != "https://unknown.example/" {
		t.Errorf("Unexpected canonical URL: %s", rec.CanonicalURL)
	}
}
