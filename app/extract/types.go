package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

// Record is the source-agnostic extraction output. Every string field is
// always defined (empty string when unresolved), never absent, so consumers
// never branch on key presence. CanonicalURL is always a syntactically valid
// absolute URL, falling back to the page location.
type Record struct {
	Source       string `json:"source"`
	CanonicalURL string `json:"canonical_url"`
	Body         string `json:"body"`
	AuthorName   string `json:"author_name"`
	AuthorHandle string `json:"author_handle"`
	MediaURL     string `json:"media_url"`
}

// Partial holds the fields a single strategy managed to resolve. Fields are
// merged independently: one strategy may supply the author while another
// supplies the permalink.
type Partial struct {
	CanonicalURL string
	Body         string
	AuthorName   string
	AuthorHandle string
	MediaURL     string
}

// IsEmpty reports whether the strategy resolved nothing at all.
func (p Partial) IsEmpty() bool {
	return p.CanonicalURL == "" && p.Body == "" && p.AuthorName == "" &&
		p.AuthorHandle == "" && p.MediaURL == ""
}

// Scope is what a strategy gets to look at: the full page document, the page
// URL, and optionally one content unit. A nil Unit means page-level
// extraction (context-menu style), where the pipeline infers the best-guess
// unit from the whole page.
type Scope struct {
	Doc     *goquery.Document
	Unit    *goquery.Selection
	PageURL *url.URL
	Source  source.Source
}

// Root returns the selection strategies should search within: the content
// unit when one is scoped, otherwise the whole document.
func (s *Scope) Root() *goquery.Selection {
	if s.Unit != nil {
		return s.Unit
	}
	return s.Doc.Selection
}

// PageLevel reports whether extraction targets the page rather than a unit.
func (s *Scope) PageLevel() bool {
	return s.Unit == nil
}

// Strategy is one heuristic attempt at resolving record fields. Strategies
// never return errors: a miss is an empty Partial, and a panicking strategy
// is treated as a miss by the pipeline.
type Strategy func(*Scope) Partial
