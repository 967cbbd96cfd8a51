package extract

import (
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/lysyi3m/post-comb/app/source"
)

// The generic pipeline covers unrecognized origins: descriptive metadata
// first, then a readability pass over the whole document for body text.

func newGenericPipeline() *Pipeline {
	return NewPipeline(source.SourceGeneric,
		genericUnitText,
		pageMetadataFallback,
		genericReadabilityBody,
		genericTitleBody,
	)
}

func genericUnitText(s *Scope) Partial {
	if s.PageLevel() {
		return Partial{}
	}

	return Partial{
		Body:     strings.TrimSpace(s.Unit.Text()),
		MediaURL: firstNonAvatarImage(s.PageURL, s.Unit),
	}
}

// genericReadabilityBody runs a readability pass over the rendered document.
// Only worth the cost when metadata gave us nothing.
func genericReadabilityBody(s *Scope) Partial {
	if !s.PageLevel() {
		return Partial{}
	}

	html, err := s.Doc.Html()
	if err != nil || html == "" {
		return Partial{}
	}

	article, err := readability.FromReader(strings.NewReader(html), s.PageURL)
	if err != nil {
		return Partial{}
	}

	p := Partial{Body: strings.TrimSpace(article.TextContent)}
	if article.Byline != "" {
		p.AuthorName = article.Byline
	}
	if article.Image != "" {
		p.MediaURL = resolveRef(s.PageURL, article.Image)
	}

	return p
}

func genericTitleBody(s *Scope) Partial {
	return Partial{
		Body: strings.TrimSpace(s.Doc.Find("title").First().Text()),
	}
}
