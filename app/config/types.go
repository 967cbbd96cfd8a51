package config

// SourceConfig overrides or extends a content-source definition: which hosts
// classify to it, how its content units are located, and whether it behaves
// as a single-page application.
type SourceConfig struct {
	Name          string         // Derived from filename (without .yml extension)
	Source        string         `yaml:"source"`
	Hosts         []string       `yaml:"hosts"`
	UnitSelector  string         `yaml:"unit_selector"`
	SinglePageApp bool           `yaml:"single_page_app"`
	Settings      SourceSettings `yaml:"settings"`
}

// SourceSettings contains per-source processing settings.
type SourceSettings struct {
	Enabled bool `yaml:"enabled"`
}
