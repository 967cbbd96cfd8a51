package api

import (
	"github.com/lysyi3m/post-comb/app/channel"
	"github.com/lysyi3m/post-comb/app/config"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/extract"
	"github.com/lysyi3m/post-comb/app/page"
	"github.com/lysyi3m/post-comb/app/source"
	"github.com/lysyi3m/post-comb/app/watch"
)

type Handler struct {
	clipRepo  database.ClipRepository
	adapter   *channel.Adapter
	extractor *extract.Extractor
	session   page.Session // nil in archive-only mode
	registry  *source.Registry
	stats     *watch.Stats
	configs   map[string]*config.SourceConfig
}

// CommandRequest is the inbound command boundary shape. The engine accepts
// exactly two actions: scrape_and_save (page-level extraction with optional
// field overrides) and show_notification (presentational, acknowledged only).
type CommandRequest struct {
	Action  string       `json:"action"`
	Info    *CommandInfo `json:"info,omitempty"`
	Message string       `json:"message,omitempty"`
	Status  string       `json:"status,omitempty"`
}

// CommandInfo carries contextual overrides for a scrape_and_save command,
// mirroring what a context-menu invocation knows about the click target.
type CommandInfo struct {
	SelectionText string `json:"selection_text,omitempty"`
	LinkURL       string `json:"link_url,omitempty"`
	SrcURL        string `json:"src_url,omitempty"`
}
