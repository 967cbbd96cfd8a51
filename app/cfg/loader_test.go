package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:          "./test.db",
		WatchURL:        "https://microblog.example/home",
		SourcesDir:      "./sources",
		Headless:        true,
		ScanInterval:    2,
		DebounceWindow:  500,
		NavigationDelay: 1000,
		RevertDelay:     2000,
		PersistURL:      "https://persist.example/api/clips",
		Port:            "8080",
		APIAccessKey:    "test-key",
		UserAgent:       "Test Agent",
		Timezone:        "UTC",
		Debug:           true,
		Version:         "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.WatchURL != "https://microblog.example/home" {
		t.Errorf("Expected watch URL 'https://microblog.example/home', got '%s'", cfg.WatchURL)
	}
	if cfg.SourcesDir != "./sources" {
		t.Errorf("Expected sources dir './sources', got '%s'", cfg.SourcesDir)
	}
	if !cfg.Headless {
		t.Error("Expected headless to be enabled")
	}
	if cfg.ScanInterval != 2 {
		t.Errorf("Expected scan interval 2, got %d", cfg.ScanInterval)
	}
	if cfg.DebounceWindow != 500 {
		t.Errorf("Expected debounce window 500, got %d", cfg.DebounceWindow)
	}
	if cfg.NavigationDelay != 1000 {
		t.Errorf("Expected navigation delay 1000, got %d", cfg.NavigationDelay)
	}
	if cfg.RevertDelay != 2000 {
		t.Errorf("Expected revert delay 2000, got %d", cfg.RevertDelay)
	}
	if cfg.PersistURL != "https://persist.example/api/clips" {
		t.Errorf("Expected persist URL 'https://persist.example/api/clips', got '%s'", cfg.PersistURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}

func TestSetForTesting(t *testing.T) {
	original := globalCfg
	defer func() { globalCfg = original }()

	cfg := &Cfg{Port: "9090"}
	SetForTesting(cfg)

	if Get().Port != "9090" {
		t.Errorf("Expected port '9090' from Get(), got '%s'", Get().Port)
	}
}
