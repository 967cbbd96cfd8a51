package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/post-comb/app/channel"
	"github.com/lysyi3m/post-comb/app/config"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/extract"
	"github.com/lysyi3m/post-comb/app/page"
	"github.com/lysyi3m/post-comb/app/source"
	"github.com/lysyi3m/post-comb/app/watch"
)

func NewHandler(clipRepo database.ClipRepository, adapter *channel.Adapter,
	extractor *extract.Extractor, session page.Session, registry *source.Registry,
	stats *watch.Stats, configs map[string]*config.SourceConfig) *Handler {
	return &Handler{
		clipRepo:  clipRepo,
		adapter:   adapter,
		extractor: extractor,
		session:   session,
		registry:  registry,
		stats:     stats,
		configs:   configs,
	}
}

// HandleCommand is the inbound command boundary.
func (h *Handler) HandleCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid command payload"})
		return
	}

	switch req.Action {
	case channel.ActionScrapeAndSave:
		h.scrapeAndSave(c, req.Info)

	case channel.ActionShowNotification:
		slog.Info("Notification acknowledged", "message", req.Message, "status", req.Status)
		c.JSON(http.StatusOK, channel.Outcome{Success: true})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action: " + req.Action})
	}
}

// scrapeAndSave runs a page-level extraction against the attached session,
// overrides fields from the provided info, and forwards the record through
// the channel adapter.
func (h *Handler) scrapeAndSave(c *gin.Context, info *CommandInfo) {
	if h.session == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No page session attached"})
		return
	}

	ctx := c.Request.Context()

	raw, err := h.session.URL(ctx)
	if err != nil {
		slog.Error("Command extraction failed, location unreadable", "error", err)
		c.JSON(http.StatusOK, channel.Outcome{Success: false, Error: err.Error()})
		return
	}

	pageURL, _ := url.Parse(raw)

	doc, err := h.session.Document(ctx)
	if err != nil {
		slog.Error("Command extraction failed, snapshot unreadable", "error", err)
		c.JSON(http.StatusOK, channel.Outcome{Success: false, Error: err.Error()})
		return
	}

	src := h.registry.Classify(pageURL)
	record := h.extractor.Run(src, doc, nil, pageURL)

	record = applyOverrides(record, info)

	outcome := h.adapter.Send(ctx, channel.Message{
		Action: channel.ActionSavePost,
		Data:   record,
	})

	c.JSON(http.StatusOK, outcome)
}

// applyOverrides replaces record fields with the command's contextual info
// when present: selected text is a better body, the clicked link a better
// permalink, the clicked image a better media reference.
func applyOverrides(record extract.Record, info *CommandInfo) extract.Record {
	if info == nil {
		return record
	}

	if info.SelectionText != "" {
		record.Body = info.SelectionText
	}
	if info.LinkURL != "" {
		record.CanonicalURL = info.LinkURL
	}
	if info.SrcURL != "" {
		record.MediaURL = info.SrcURL
	}

	return record
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if clipCount, err := h.clipRepo.GetClipCount(); err == nil {
		health["clips"] = clipCount
	}

	health["session_attached"] = h.session != nil
	health["loaded_configurations"] = len(h.configs)

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"engine": h.stats.Snapshot(),
	}

	if clipCount, err := h.clipRepo.GetClipCount(); err == nil {
		stats["clips"] = clipCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetClips(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	clips, err := h.clipRepo.GetRecentClips(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_clips", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"clips": clips,
		"total": len(clips),
	})
}
