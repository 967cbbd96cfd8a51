package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// cleanText NFC-normalizes extracted text and collapses runs of whitespace.
// Page markup is full of layout-driven newlines and non-canonical composed
// characters that would otherwise leak into stored records.
func cleanText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// resolveRef resolves href against the page URL and returns an absolute
// http(s) URL, or "" when the reference is unusable.
func resolveRef(page *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if page != nil {
		ref = page.ResolveReference(ref)
	}

	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	if ref.Host == "" {
		return ""
	}

	return ref.String()
}

// attrOf returns the trimmed attribute value of the first match, or "".
func attrOf(sel *goquery.Selection, selector, attr string) string {
	v, ok := sel.Find(selector).First().Attr(attr)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// textOf returns the trimmed text of the first match, or "".
func textOf(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// metaContent reads a <meta> content value by property or name.
func metaContent(doc *goquery.Document, key string) string {
	selector := "meta[property='" + key + "'], meta[name='" + key + "']"
	return attrOf(doc.Selection, selector, "content")
}

// pathSegments splits a URL path into its non-empty segments.
func pathSegments(p string) []string {
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// bestSrcsetCandidate picks the last (highest-resolution by convention)
// candidate URL out of a srcset attribute value.
func bestSrcsetCandidate(srcset string) string {
	candidates := strings.Split(srcset, ",")
	for i := len(candidates) - 1; i >= 0; i-- {
		fields := strings.Fields(strings.TrimSpace(candidates[i]))
		if len(fields) > 0 && fields[0] != "" {
			return fields[0]
		}
	}
	return ""
}

// firstNonAvatarImage returns the src (or best srcset candidate) of the first
// image in sel that does not look like a profile avatar.
func firstNonAvatarImage(page *url.URL, sel *goquery.Selection) string {
	var found string

	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if isAvatarImage(img) {
			return true
		}

		if srcset, ok := img.Attr("srcset"); ok {
			if candidate := resolveRef(page, bestSrcsetCandidate(srcset)); candidate != "" {
				found = candidate
				return false
			}
		}
		if src, ok := img.Attr("src"); ok {
			if candidate := resolveRef(page, src); candidate != "" {
				found = candidate
				return false
			}
		}
		return true
	})

	return found
}

func isAvatarImage(img *goquery.Selection) bool {
	if img.HasClass("avatar") || img.HasClass("profile-photo") {
		return true
	}
	if img.Closest("a").Length() > 0 {
		// Images wrapped in profile links are author avatars, not post media.
		href, _ := img.Closest("a").Attr("href")
		if len(pathSegments(href)) == 1 {
			return true
		}
	}
	alt, _ := img.Attr("alt")
	return strings.Contains(strings.ToLower(alt), "avatar")
}
