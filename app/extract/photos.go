package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

// Photo posts are image-first: the representative media reference matters
// more than text, and captions frequently live only in the image alt text.

var photoPermalinkPath = regexp.MustCompile(`^/p/[A-Za-z0-9_-]+`)

func newPhotosPipeline() *Pipeline {
	return NewPipeline(source.SourcePhotos,
		photosMedia,
		photosPermalink,
		photosCaption,
		photosAuthor,
		pageMetadataFallback,
	)
}

func photosMedia(s *Scope) Partial {
	root := s.Root()

	img := root.Find("figure img, article img, img").First()
	if img.Length() == 0 {
		if poster := attrOf(root, "video", "poster"); poster != "" {
			return Partial{MediaURL: resolveRef(s.PageURL, poster)}
		}
		return Partial{}
	}

	var p Partial
	if srcset, ok := img.Attr("srcset"); ok {
		p.MediaURL = resolveRef(s.PageURL, bestSrcsetCandidate(srcset))
	}
	if p.MediaURL == "" {
		src, _ := img.Attr("src")
		p.MediaURL = resolveRef(s.PageURL, src)
	}

	// Captions on this source are routinely only present as alt text.
	if alt, ok := img.Attr("alt"); ok {
		p.Body = strings.TrimSpace(alt)
	}

	return p
}

func photosPermalink(s *Scope) Partial {
	var p Partial

	s.Root().Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !photoPermalinkPath.MatchString(pathOnly(href)) {
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

func photosCaption(s *Scope) Partial {
	root := s.Root()

	caption := textOf(root, "figcaption")
	if caption == "" {
		caption = textOf(root, ".caption")
	}

	return Partial{Body: caption}
}

func photosAuthor(s *Scope) Partial {
	root := s.Root()

	header := root.Find("header").First()
	scope := header
	if scope.Length() == 0 {
		scope = root
	}

	name, handle, ok := firstLabeledProfileLink(scope)
	if !ok {
		name, handle, ok = segmentFallbackProfileLink(scope)
	}
	if !ok {
		return Partial{}
	}

	return Partial{AuthorName: name, AuthorHandle: handle}
}
