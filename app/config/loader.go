package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/post-comb/app/source"
)

// Loader reads source configuration files from the sources directory.
type Loader struct {
	sourcesDir string
}

func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads every YAML configuration file from the sources directory.
// A missing directory is not an error: the built-in definitions apply.
func (l *Loader) LoadAll() (map[string]*SourceConfig, error) {
	configs := make(map[string]*SourceConfig)

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	yamlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		configs[config.Name] = config
		slog.Debug("Loaded source configuration", "file", file, "source", config.Source)
	}

	return configs, nil
}

// Apply registers the loaded configurations with the source registry,
// overriding the built-in definitions.
func Apply(registry *source.Registry, configs map[string]*SourceConfig) {
	for _, config := range configs {
		if !config.Settings.Enabled {
			slog.Debug("Source disabled, skipping registration", "source", config.Source)
			continue
		}

		def := registry.Definition(source.Source(config.Source))
		registered := &source.Definition{
			Source:        source.Source(config.Source),
			Hosts:         config.Hosts,
			UnitSelector:  config.UnitSelector,
			SinglePageApp: config.SinglePageApp,
		}
		if registered.UnitSelector == "" && def != nil {
			registered.UnitSelector = def.UnitSelector
		}

		registry.Register(registered)
	}
}

func (l *Loader) loadFile(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config SourceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Base(path)
	config.Name = strings.TrimSuffix(strings.TrimSuffix(base, ".yml"), ".yaml")

	l.setDefaults(&config)

	return &config, nil
}

func (l *Loader) setDefaults(config *SourceConfig) {
	if config.Source == "" {
		config.Source = config.Name
	}
}

func (l *Loader) validate(config *SourceConfig) error {
	validSources := map[string]bool{
		string(source.SourceMicroblog): true,
		string(source.SourceSocial):    true,
		string(source.SourcePhotos):    true,
		string(source.SourceVideo):     true,
		string(source.SourceGeneric):   true,
	}

	if !validSources[config.Source] {
		return fmt.Errorf("unknown source tag: %s", config.Source)
	}

	if config.Source != string(source.SourceGeneric) && len(config.Hosts) == 0 {
		return fmt.Errorf("at least one host is required for source %s", config.Source)
	}

	return nil
}
