package extract

import (
	"regexp"
	"strings"
)

// titleAttribution matches the "<name> on <platform>" document title template
// several sources use on permalink pages.
var titleAttribution = regexp.MustCompile(`^(.{1,80}?) on .+$`)

// pageMetadataFallback is the last-resort strategy shared by every pipeline:
// document-level descriptive metadata. Weakest signal, but present on almost
// any page.
func pageMetadataFallback(s *Scope) Partial {
	p := Partial{
		Body:     metaContent(s.Doc, "og:description"),
		MediaURL: resolveRef(s.PageURL, metaContent(s.Doc, "og:image")),
	}

	if u := resolveRef(s.PageURL, metaContent(s.Doc, "og:url")); u != "" {
		p.CanonicalURL = u
	} else if u := resolveRef(s.PageURL, attrOf(s.Doc.Selection, "link[rel='canonical']", "href")); u != "" {
		p.CanonicalURL = u
	}

	if p.Body == "" {
		p.Body = metaContent(s.Doc, "description")
	}

	if author := metaContent(s.Doc, "author"); author != "" {
		p.AuthorName = author
	} else if title := strings.TrimSpace(s.Doc.Find("title").First().Text()); title != "" {
		if m := titleAttribution.FindStringSubmatch(title); m != nil {
			p.AuthorName = m[1]
		}
	}

	return p
}
