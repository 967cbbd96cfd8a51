package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/post-comb/app/api"
	"github.com/lysyi3m/post-comb/app/cfg"
	"github.com/lysyi3m/post-comb/app/channel"
	"github.com/lysyi3m/post-comb/app/config"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/extract"
	"github.com/lysyi3m/post-comb/app/page"
	"github.com/lysyi3m/post-comb/app/source"
	"github.com/lysyi3m/post-comb/app/watch"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appConfig == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogging(appConfig.Debug)
	slog.Info("Starting Post Comb", "version", appConfig.Version)

	// Clip archive
	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		log.Fatal("Failed to open clip archive:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	slog.Info("Clip archive ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	clipRepo := database.NewClipRepository(db)

	// Source configurations
	registry := source.NewRegistry()
	loader := config.NewLoader(appConfig.SourcesDir)
	configs, err := loader.LoadAll()
	if err != nil {
		log.Fatal("Failed to load source configurations:", err)
	}
	config.Apply(registry, configs)
	slog.Info("Source configurations loaded", "count", len(configs))

	extractor := extract.NewExtractor()
	httpClient := &http.Client{Timeout: 30 * time.Second}
	sender := buildSender(appConfig, httpClient, clipRepo)

	// One-shot mode: extract a single page and exit.
	if appConfig.ClipURL != "" {
		if err := clipOnce(appConfig, httpClient, registry, extractor, sender); err != nil {
			log.Fatal("Clip failed:", err)
		}
		return
	}

	stats := watch.NewStats()

	// Watch mode: attach a browser session and run the engine.
	var session page.Session
	var engine *watch.Engine
	var adapter *channel.Adapter

	if appConfig.WatchURL != "" {
		browser, err := page.NewBrowserSession(context.Background(), appConfig.WatchURL, page.BrowserOptions{
			Headless:  appConfig.Headless,
			UserAgent: appConfig.UserAgent,
		})
		if err != nil {
			log.Fatal("Failed to attach browser session:", err)
		}
		defer browser.Close()
		session = browser

		guard := watch.NewGuard(browser.Alive)
		adapter = channel.NewAdapter(sender, guard)

		injector := watch.NewInjector(browser, registry, extractor, adapter, guard,
			stats, time.Duration(appConfig.RevertDelay)*time.Millisecond)

		engine = watch.NewEngine(browser, registry, injector, guard, stats, watch.Options{
			Interval:       time.Duration(appConfig.ScanInterval) * time.Second,
			DebounceWindow: time.Duration(appConfig.DebounceWindow) * time.Millisecond,
			NavDelay:       time.Duration(appConfig.NavigationDelay) * time.Millisecond,
		})
		engine.Start()
		defer engine.Stop()
	} else {
		slog.Info("No watch URL configured, running archive-only")
		adapter = channel.NewAdapter(sender, nil)
	}

	// HTTP server
	apiHandler := api.NewHandler(clipRepo, adapter, extractor, session, registry, stats, configs)
	server := api.NewServer(apiHandler, appConfig.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Engine and browser session are stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// buildSender picks the outbound channel: the remote persistence endpoint
// when configured (archiving locally as a secondary), otherwise the local
// archive alone.
func buildSender(appConfig *cfg.Cfg, httpClient *http.Client, clipRepo database.ClipRepository) channel.Sender {
	store := channel.NewStoreSender(clipRepo)

	if appConfig.PersistURL == "" {
		return store
	}

	remote := channel.NewHTTPSender(httpClient, appConfig.PersistURL, appConfig.UserAgent)
	return channel.NewMultiSender(remote, store)
}

// clipOnce fetches a page over plain HTTP, runs a page-level extraction, and
// dispatches the record. Static pages need no browser.
func clipOnce(appConfig *cfg.Cfg, httpClient *http.Client,
	registry *source.Registry, extractor *extract.Extractor, sender channel.Sender) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	html, err := fetchPage(ctx, httpClient, appConfig.ClipURL, appConfig.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}

	session, err := page.NewStaticSession(appConfig.ClipURL, html)
	if err != nil {
		return err
	}

	doc, err := session.Document(ctx)
	if err != nil {
		return err
	}

	raw, err := session.URL(ctx)
	if err != nil {
		return err
	}
	pageURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid clip URL: %w", err)
	}

	src := registry.Classify(pageURL)
	record := extractor.Run(src, doc, nil, pageURL)

	adapter := channel.NewAdapter(sender, nil)
	outcome := adapter.Send(ctx, channel.Message{
		Action: channel.ActionSavePost,
		Data:   record,
	})

	encoded, _ := json.MarshalIndent(map[string]interface{}{
		"record":  record,
		"outcome": outcome,
	}, "", "  ")
	fmt.Println(string(encoded))

	if !outcome.Success {
		return fmt.Errorf("dispatch failed: %s", outcome.Error)
	}

	slog.Info("Clip archived", "source", record.Source, "url", record.CanonicalURL)
	return nil
}

func fetchPage(ctx context.Context, client *http.Client, pageURL, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	return string(data), nil
}
