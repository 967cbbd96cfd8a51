package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

// The social source has no stable structural author marker, so author
// identification is a four-tier cascade over profile-shaped links. Each tier
// runs only if the prior one produced nothing; first success short-circuits.

// socialLabelDenyList holds visible link labels that are known action
// affordances rather than author names.
var socialLabelDenyList = map[string]bool{
	"follow":    true,
	"following": true,
	"share":     true,
	"like":      true,
	"comment":   true,
	"reply":     true,
	"subscribe": true,
	"more":      true,
	"see more":  true,
	"save":      true,
}

// socialReservedSegments holds single-segment paths that are system routes,
// not profiles.
var socialReservedSegments = map[string]bool{
	"settings": true, "help": true, "privacy": true, "terms": true,
	"login": true, "logout": true, "signup": true, "search": true,
	"explore": true, "notifications": true, "messages": true,
	"friends": true, "groups": true, "events": true, "pages": true,
	"watch": true, "marketplace": true, "stories": true, "reels": true,
	"photos": true, "posts": true, "about": true, "home": true,
}

var profileSegment = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var socialPermalinkPath = regexp.MustCompile(`/(posts|permalink|story)/`)

func newSocialPipeline() *Pipeline {
	return NewPipeline(source.SourceSocial,
		socialAuthorCascade,
		socialPermalink,
		socialBodyAndMedia,
		pageMetadataFallback,
	)
}

func socialAuthorCascade(s *Scope) Partial {
	root := s.Root()
	header := root.Find("header, .post-header, [role='banner']").First()

	// Tier 1: first labeled profile link inside the header region.
	if header.Length() > 0 {
		if name, handle, ok := firstLabeledProfileLink(header); ok {
			return Partial{AuthorName: name, AuthorHandle: handle}
		}
	}

	// Tier 2: any labeled profile link in the unit.
	if name, handle, ok := firstLabeledProfileLink(root); ok {
		return Partial{AuthorName: name, AuthorHandle: handle}
	}

	// Tier 3: page title attribution template.
	if title := strings.TrimSpace(s.Doc.Find("title").First().Text()); title != "" {
		if m := titleAttribution.FindStringSubmatch(title); m != nil {
			return Partial{AuthorName: strings.TrimSpace(m[1])}
		}
	}

	// Tier 4: profile-shaped link with no usable label; the path segment
	// itself names the author. Header links take precedence.
	for _, scope := range []*goquery.Selection{header, root} {
		if scope.Length() == 0 {
			continue
		}
		if name, handle, ok := segmentFallbackProfileLink(scope); ok {
			return Partial{AuthorName: name, AuthorHandle: handle}
		}
	}

	return Partial{}
}

// firstLabeledProfileLink returns the first profile-shaped link carrying a
// human-readable label that is not a known action affordance.
func firstLabeledProfileLink(scope *goquery.Selection) (name, handle string, ok bool) {
	scope.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		segment, shaped := profilePathSegment(a)
		if !shaped {
			return true
		}

		label := cleanText(a.Text())
		if label == "" || socialLabelDenyList[strings.ToLower(label)] {
			return true
		}

		name, handle, ok = label, segment, true
		return false
	})
	return name, handle, ok
}

// segmentFallbackProfileLink accepts profile-shaped links regardless of
// label. An inner text fragment equal to the path segment confirms the
// match; with no text at all, the segment stands in for both fields.
func segmentFallbackProfileLink(scope *goquery.Selection) (name, handle string, ok bool) {
	scope.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		segment, shaped := profilePathSegment(a)
		if !shaped {
			return true
		}

		label := cleanText(a.Text())
		if socialLabelDenyList[strings.ToLower(label)] {
			return true
		}

		name, handle, ok = segment, segment, true
		if label == segment {
			name = label
		}
		return false
	})
	return name, handle, ok
}

// profilePathSegment reports whether the anchor points at a profile-shaped
// path (exactly one non-reserved segment) and returns that segment.
func profilePathSegment(a *goquery.Selection) (string, bool) {
	href, _ := a.Attr("href")
	segments := pathSegments(pathOnly(href))
	if len(segments) != 1 {
		return "", false
	}

	segment := segments[0]
	if socialReservedSegments[strings.ToLower(segment)] {
		return "", false
	}
	if !profileSegment.MatchString(segment) {
		return "", false
	}

	return segment, true
}

func socialPermalink(s *Scope) Partial {
	var p Partial

	s.Root().Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !socialPermalinkPath.MatchString(pathOnly(href)) {
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

func socialBodyAndMedia(s *Scope) Partial {
	root := s.Root()

	body := textOf(root, "[data-testid='post-message']")
	if body == "" {
		body = textOf(root, ".post-message")
	}
	if body == "" && s.Unit != nil {
		// Unit text minus obvious chrome is still better than nothing.
		body = strings.TrimSpace(root.Clone().ChildrenFiltered("header, footer, nav").Remove().End().Text())
	}

	return Partial{
		Body:     body,
		MediaURL: firstNonAvatarImage(s.PageURL, root),
	}
}
