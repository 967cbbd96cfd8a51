package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Archive configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./post-comb.db" description:"Path to the sqlite clip archive"`

	// Watch configuration
	WatchURL        string `long:"watch-url" env:"WATCH_URL" description:"Page URL to attach the watch engine to"`
	SourcesDir      string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Headless        bool   `long:"headless" env:"HEADLESS" description:"Run the browser headless"`
	ScanInterval    int    `long:"scan-interval" env:"SCAN_INTERVAL" default:"2" description:"Periodic rescan interval in seconds"`
	DebounceWindow  int    `long:"debounce-window" env:"DEBOUNCE_WINDOW" default:"500" description:"Mutation debounce window in milliseconds"`
	NavigationDelay int    `long:"navigation-delay" env:"NAVIGATION_DELAY" default:"1000" description:"Rescan delay after navigation in milliseconds"`
	RevertDelay     int    `long:"revert-delay" env:"REVERT_DELAY" default:"2000" description:"Control outcome display delay in milliseconds"`

	// Persistence configuration
	PersistURL string `long:"persist-url" env:"PERSIST_URL" description:"Remote persistence endpoint (optional; archive-only when unset)"`

	// One-shot mode
	ClipURL string `long:"clip-url" env:"CLIP_URL" description:"Extract and archive a single page, then exit"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Post Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		WatchURL:        raw.WatchURL,
		SourcesDir:      raw.SourcesDir,
		Headless:        raw.Headless,
		ScanInterval:    raw.ScanInterval,
		DebounceWindow:  raw.DebounceWindow,
		NavigationDelay: raw.NavigationDelay,
		RevertDelay:     raw.RevertDelay,
		PersistURL:      raw.PersistURL,
		ClipURL:         raw.ClipURL,
		Port:            raw.Port,
		APIAccessKey:    raw.APIAccessKey,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting replaces the process configuration. Test helper only.
func SetForTesting(cfg *Cfg) {
	globalCfg = cfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
