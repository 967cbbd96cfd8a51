package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/source"
)

// Extractor selects and runs the extraction pipeline for a content source.
type Extractor struct {
	pipelines map[source.Source]*Pipeline
}

func NewExtractor() *Extractor {
	return &Extractor{
		pipelines: map[source.Source]*Pipeline{
			source.SourceMicroblog: newMicroblogPipeline(),
			source.SourceSocial:    newSocialPipeline(),
			source.SourcePhotos:    newPhotosPipeline(),
			source.SourceVideo:     newVideoPipeline(),
			source.SourceGeneric:   newGenericPipeline(),
		},
	}
}

// Run extracts a normalized record for the given source. A nil unit selects
// page-level extraction. Unknown source tags use the generic pipeline.
func (e *Extractor) Run(src source.Source, doc *goquery.Document, unit *goquery.Selection, pageURL *url.URL) Record {
	pipeline, ok := e.pipelines[src]
	if !ok {
		pipeline = e.pipelines[source.SourceGeneric]
	}

	return pipeline.Run(&Scope{
		Doc:     doc,
		Unit:    unit,
		PageURL: pageURL,
		Source:  src,
	})
}
