package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

// Microblog entries carry the most stable structural identifiers of any
// supported source, so the pipeline leans on data attributes first and only
// falls back to anchor scanning and page metadata when the markup has been
// stripped of them.

var microblogPostPath = regexp.MustCompile(`^/[^/]+/posts/\d+`)

func newMicroblogPipeline() *Pipeline {
	return NewPipeline(source.SourceMicroblog,
		microblogStructuralAttrs,
		microblogTimestampAnchor,
		microblogAnchorScan,
		microblogBodyAndMedia,
		pageMetadataFallback,
	)
}

// microblogStructuralAttrs reads the semantic data attributes the source
// stamps on each entry. Most stable across UI redesigns.
func microblogStructuralAttrs(s *Scope) Partial {
	root := s.Root()
	p := Partial{
		AuthorHandle: attrValue(root, "data-author-handle"),
		AuthorName:   attrValue(root, "data-author-name"),
	}

	if path := attrValue(root, "data-permalink-path"); path != "" {
		p.CanonicalURL = resolveRef(s.PageURL, path)
	}

	if p.AuthorHandle == "" {
		p.AuthorHandle = attrOf(root, "[data-author-handle]", "data-author-handle")
	}
	if p.AuthorName == "" {
		p.AuthorName = attrOf(root, "[data-author-name]", "data-author-name")
	}

	return p
}

// microblogTimestampAnchor finds the permalink through the timestamp link,
// the dedicated permalink-bearing element on this source.
func microblogTimestampAnchor(s *Scope) Partial {
	var p Partial

	s.Root().Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.Find("time").Length() == 0 {
			return true
		}
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		if u := resolveRef(s.PageURL, href); u != "" {
			p.CanonicalURL = u
			return false
		}
		return true
	})

	return p
}

// microblogAnchorScan is the broad fallback: any anchor whose path matches
// the known post permalink shape.
func microblogAnchorScan(s *Scope) Partial {
	var p Partial

	s.Root().Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !microblogPostPath.MatchString(pathOnly(href)) {
			return true
		}
		if u := resolveRef(s.PageURL, href); u != "" {
			p.CanonicalURL = u
			if segs := pathSegments(pathOnly(href)); len(segs) >= 1 && p.AuthorHandle == "" {
				p.AuthorHandle = segs[0]
			}
			return false
		}
		return true
	})

	return p
}

func microblogBodyAndMedia(s *Scope) Partial {
	root := s.Root()

	body := textOf(root, "[data-testid='post-text']")
	if body == "" {
		body = textOf(root, ".post-body")
	}

	return Partial{
		Body:     body,
		MediaURL: firstNonAvatarImage(s.PageURL, root),
	}
}

// attrValue reads an attribute from the scoped element itself rather than
// its descendants. Page-level scopes have no such element and yield "".
func attrValue(sel *goquery.Selection, attr string) string {
	if sel.Length() == 0 {
		return ""
	}
	v, _ := sel.First().Attr(attr)
	return strings.TrimSpace(v)
}

func pathOnly(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i]
	}
	return href
}
