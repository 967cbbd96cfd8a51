package source

// Source identifies which extraction pipeline applies to a page.
type Source string

const (
	SourceMicroblog Source = "microblog"
	SourceSocial    Source = "social"
	SourcePhotos    Source = "photos"
	SourceVideo     Source = "video"
	SourceGeneric   Source = "generic"
)

// Definition describes one content source: the hosts it serves from and the
// structural selector used to locate its content units.
type Definition struct {
	Source        Source
	Hosts         []string
	UnitSelector  string
	SinglePageApp bool // location changes without full page loads
}
