package extract

import (
	"log/slog"

	"github.com/lysyi3m/post-comb/app/source"
)

// Pipeline is an ordered list of extraction strategies for one content
// source. Strategies run left to right; the first one to yield a non-empty
// value for a given field wins that field. Fields are resolved independently,
// not atomically per record.
type Pipeline struct {
	source     source.Source
	strategies []Strategy
}

func NewPipeline(s source.Source, strategies ...Strategy) *Pipeline {
	return &Pipeline{source: s, strategies: strategies}
}

// Run executes the pipeline against the given scope. It never returns an
// error and never panics past its boundary: a faulting strategy counts as a
// miss, and an unexpected fault mid-merge still yields whatever fields were
// resolved so far, with the rest defaulted. Partial records are more useful
// than no record.
func (p *Pipeline) Run(scope *Scope) (rec Record) {
	rec = Record{Source: string(p.source)}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Extraction pipeline fault, returning partial record",
				"source", p.source, "panic", r)
		}
		p.finalize(&rec, scope)
	}()

	for _, strategy := range p.strategies {
		if rec.complete() {
			break
		}
		merge(&rec, p.runStrategy(strategy, scope))
	}

	return rec
}

// runStrategy isolates a single strategy: an internal failure (missing
// element, malformed attribute, panic) is swallowed and treated as no answer.
func (p *Pipeline) runStrategy(strategy Strategy, scope *Scope) (partial Partial) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Extraction strategy fault, skipping",
				"source", p.source, "panic", r)
			partial = Partial{}
		}
	}()

	return strategy(scope)
}

// finalize enforces the record invariants: the canonical URL always falls
// back to the page location, and text fields are normalized.
func (p *Pipeline) finalize(rec *Record, scope *Scope) {
	if rec.CanonicalURL == "" && scope != nil && scope.PageURL != nil {
		rec.CanonicalURL = scope.PageURL.String()
	}

	rec.Body = cleanText(rec.Body)
	rec.AuthorName = cleanText(rec.AuthorName)
	rec.AuthorHandle = cleanText(rec.AuthorHandle)
}

func (r *Record) complete() bool {
	return r.CanonicalURL != "" && r.Body != "" && r.AuthorName != "" &&
		r.AuthorHandle != "" && r.MediaURL != ""
}

func merge(rec *Record, partial Partial) {
	if rec.CanonicalURL == "" {
		rec.CanonicalURL = partial.CanonicalURL
	}
	if rec.Body == "" {
		rec.Body = partial.Body
	}
	if rec.AuthorName == "" {
		rec.AuthorName = partial.AuthorName
	}
	if rec.AuthorHandle == "" {
		rec.AuthorHandle = partial.AuthorHandle
	}
	if rec.MediaURL == "" {
		rec.MediaURL = partial.MediaURL
	}
}
