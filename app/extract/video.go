package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

// For page-level video extraction the URL-derived identifier is
// authoritative: titles and author names in the tree are decorative and churn
// with the UI, while the watch identifier is stable and addressable. List
// entries have no page-level identifier, so a scoped extraction reads the
// entry subtree instead.

var (
	videoWatchPath   = regexp.MustCompile(`^/watch/([A-Za-z0-9_-]+)`)
	videoChannelPath = regexp.MustCompile(`^/(@[A-Za-z0-9_.-]+|channel/[A-Za-z0-9_-]+)`)
)

func newVideoPipeline() *Pipeline {
	return NewPipeline(source.SourceVideo,
		videoIdentity,
		videoListEntry,
		videoAuthor,
		pageMetadataFallback,
	)
}

// videoID derives the stable video identifier from a URL, preferring the
// watch query parameter over the path form.
func videoID(u *url.URL) string {
	if u == nil {
		return ""
	}
	if id := u.Query().Get("v"); id != "" {
		return id
	}
	if m := videoWatchPath.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// videoThumbnail synthesizes the addressable thumbnail URL for an
// identifier on the given host.
func videoThumbnail(host, id string) string {
	return fmt.Sprintf("https://i.%s/vi/%s/hqdefault.jpg", host, id)
}

// videoIdentity resolves canonical URL and thumbnail from the page URL. Only
// applies to page-level extraction; list entries resolve locally.
func videoIdentity(s *Scope) Partial {
	if !s.PageLevel() {
		return Partial{}
	}

	id := videoID(s.PageURL)
	if id == "" {
		return Partial{}
	}

	host := s.PageURL.Hostname()
	p := Partial{
		CanonicalURL: fmt.Sprintf("https://%s/watch?v=%s", host, url.QueryEscape(id)),
		MediaURL:     videoThumbnail(host, id),
	}

	if title := metaContent(s.Doc, "og:title"); title != "" {
		p.Body = title
	} else if title := strings.TrimSpace(s.Doc.Find("title").First().Text()); title != "" {
		p.Body = title
	}

	return p
}

// videoListEntry resolves all fields from one feed/list entry: the title
// anchor carries both the permalink and the display title.
func videoListEntry(s *Scope) Partial {
	if s.PageLevel() {
		return Partial{}
	}

	var p Partial
	root := s.Root()

	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		resolved := resolveRef(s.PageURL, href)
		if resolved == "" {
			return true
		}

		u, err := url.Parse(resolved)
		if err != nil || videoID(u) == "" {
			return true
		}

		p.CanonicalURL = resolved
		if title := cleanText(a.Text()); title != "" {
			p.Body = title
		}
		return false
	})

	if thumb := attrOf(root, "img", "src"); thumb != "" {
		p.MediaURL = resolveRef(s.PageURL, thumb)
	}
	if p.MediaURL == "" && p.CanonicalURL != "" {
		if u, err := url.Parse(p.CanonicalURL); err == nil {
			if id := videoID(u); id != "" {
				p.MediaURL = videoThumbnail(u.Hostname(), id)
			}
		}
	}

	return p
}

func videoAuthor(s *Scope) Partial {
	root := s.Root()
	var p Partial

	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !videoChannelPath.MatchString(pathOnly(href)) {
			return true
		}

		if name := cleanText(a.Text()); name != "" {
			p.AuthorName = name
		}
		if segs := pathSegments(pathOnly(href)); len(segs) > 0 {
			p.AuthorHandle = strings.TrimPrefix(segs[len(segs)-1], "@")
		}
		return !(p.AuthorName != "" || p.AuthorHandle != "")
	})

	if p.AuthorName == "" {
		p.AuthorName = attrOf(s.Doc.Selection, "link[itemprop='name']", "content")
	}

	return p
}
