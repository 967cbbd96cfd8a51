package source

import (
	"net/url"
	"strings"
	"sync"
)

// Registry maps page origins to known content sources. Unrecognized origins
// always classify as SourceGeneric, so classification has no failure mode.
type Registry struct {
	mu          sync.RWMutex
	definitions map[Source]*Definition
	hostIndex   map[string]Source
}

func NewRegistry() *Registry {
	r := &Registry{
		definitions: make(map[Source]*Definition),
		hostIndex:   make(map[string]Source),
	}

	for _, def := range defaultDefinitions() {
		r.Register(def)
	}

	return r
}

// Register adds or replaces a source definition. Hosts already claimed by
// another source are reassigned to the new definition.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.definitions[def.Source] = def
	for _, host := range def.Hosts {
		r.hostIndex[normalizeHost(host)] = def.Source
	}
}

// Classify maps a page URL to its content source. Pure and total: nil URLs,
// empty hosts, and unknown origins all map to SourceGeneric.
func (r *Registry) Classify(u *url.URL) Source {
	if u == nil {
		return SourceGeneric
	}

	host := normalizeHost(u.Hostname())
	if host == "" {
		return SourceGeneric
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.hostIndex[host]; ok {
		return s
	}

	// Subdomain match: m.social.example belongs to social.example.
	for registered, s := range r.hostIndex {
		if strings.HasSuffix(host, "."+registered) {
			return s
		}
	}

	return SourceGeneric
}

// Definition returns the definition for a source, falling back to the
// generic definition for unknown tags.
func (r *Registry) Definition(s Source) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.definitions[s]; ok {
		return def
	}
	return r.definitions[SourceGeneric]
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

func defaultDefinitions() []*Definition {
	return []*Definition{
		{
			Source:        SourceMicroblog,
			Hosts:         []string{"microblog.example"},
			UnitSelector:  "article[data-entry-id]",
			SinglePageApp: true,
		},
		{
			Source:       SourceSocial,
			Hosts:        []string{"social.example"},
			UnitSelector: "[role='article']",
		},
		{
			Source:       SourcePhotos,
			Hosts:        []string{"pics.example"},
			UnitSelector: "article.photo-card",
		},
		{
			Source:        SourceVideo,
			Hosts:         []string{"video.example"},
			UnitSelector:  ".video-entry",
			SinglePageApp: true,
		},
		{
			Source:       SourceGeneric,
			Hosts:        nil,
			UnitSelector: "article",
		},
	}
}
