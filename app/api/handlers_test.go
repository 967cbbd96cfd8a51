package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/post-comb/app/channel"
	"github.com/lysyi3m/post-comb/app/config"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/extract"
	"github.com/lysyi3m/post-comb/app/page"
	"github.com/lysyi3m/post-comb/app/source"
	"github.com/lysyi3m/post-comb/app/watch"
)

type fakeClipRepo struct {
	clips []database.Clip
}

var _ database.ClipRepository = (*fakeClipRepo)(nil)

func (r *fakeClipRepo) UpsertClip(clip database.Clip) error {
	r.clips = append(r.clips, clip)
	return nil
}

func (r *fakeClipRepo) GetRecentClips(limit int) ([]database.Clip, error) {
	if limit > 0 && limit < len(r.clips) {
		return r.clips[:limit], nil
	}
	return r.clips, nil
}

func (r *fakeClipRepo) GetClipCount() (int, error) {
	return len(r.clips), nil
}

func (r *fakeClipRepo) CheckDuplicate(contentHash string) (bool, *string, error) {
	return false, nil, nil
}

const permalinkPage = `<html><head>
	<title>Jane Doe on SocialSite</title>
	<meta property="og:description" content="A post worth keeping.">
	<meta property="og:url" content="https://social.example/janedoe/posts/991">
</head><body>
	<div role="article">
		<header><a href="/janedoe">Jane Doe</a></header>
		<div class="post-message">A post worth keeping.</div>
	</div>
</body></html>`

func newTestServer(t *testing.T, repo database.ClipRepository, sess page.Session, apiKey string) *gin.Engine {
	t.Helper()

	adapter := channel.NewAdapter(channel.NewStoreSender(repo), nil)
	handler := NewHandler(repo, adapter, extract.NewExtractor(), sess,
		source.NewRegistry(), watch.NewStats(), map[string]*config.SourceConfig{})

	return NewServer(handler, apiKey)
}

func newTestSession(t *testing.T) *page.StaticSession {
	t.Helper()
	sess, err := page.NewStaticSession("https://social.example/janedoe/posts/991", permalinkPage)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return sess
}

func TestHandleCommand_ScrapeAndSave(t *testing.T) {
	repo := &fakeClipRepo{}
	server := newTestServer(t, repo, newTestSession(t), "")

	body, _ := json.Marshal(CommandRequest{Action: channel.ActionScrapeAndSave})
	req := httptest.NewRequest("POST", "/commands", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var outcome channel.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to decode outcome: %v", err)
	}
	if !outcome.Success {
		t.Errorf("Expected success outcome, got %+v", outcome)
	}

	if len(repo.clips) != 1 {
		t.Fatalf("Expected 1 archived clip, got %d", len(repo.clips))
	}
	if repo.clips[0].CanonicalURL != "https://social.example/janedoe/posts/991" {
		t.Errorf("Unexpected archived URL: %s", repo.clips[0].CanonicalURL)
	}
	if repo.clips[0].Source != "social" {
		t.Errorf("Expected source 'social', got '%s'", repo.clips[0].Source)
	}
}

func TestHandleCommand_ScrapeAndSave_Overrides(t *testing.T) {
	repo := &fakeClipRepo{}
	server := newTestServer(t, repo, newTestSession(t), "")

	body, _ := json.Marshal(CommandRequest{
		Action: channel.ActionScrapeAndSave,
		Info: &CommandInfo{
			SelectionText: "Just this sentence.",
			SrcURL:        "https://social.example/media/selected.jpg",
		},
	})
	req := httptest.NewRequest("POST", "/commands", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(repo.clips) != 1 {
		t.Fatalf("Expected 1 archived clip, got %d", len(repo.clips))
	}
	if repo.clips[0].Body != "Just this sentence." {
		t.Errorf("Expected selection override as body, got '%s'", repo.clips[0].Body)
	}
	if repo.clips[0].MediaURL != "https://social.example/media/selected.jpg" {
		t.Errorf("Expected src override as media, got '%s'", repo.clips[0].MediaURL)
	}
}

func TestHandleCommand_ScrapeAndSave_NoSession(t *testing.T) {
	server := newTestServer(t, &fakeClipRepo{}, nil, "")

	body, _ := json.Marshal(CommandRequest{Action: channel.ActionScrapeAndSave})
	req := httptest.NewRequest("POST", "/commands", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a session, got %d", w.Code)
	}
}

func TestHandleCommand_ShowNotification(t *testing.T) {
	server := newTestServer(t, &fakeClipRepo{}, nil, "")

	body, _ := json.Marshal(CommandRequest{
		Action:  channel.ActionShowNotification,
		Message: "Saved!",
		Status:  "success",
	})
	req := httptest.NewRequest("POST", "/commands", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var outcome channel.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to decode outcome: %v", err)
	}
	if !outcome.Success {
		t.Errorf("Expected acknowledgement, got %+v", outcome)
	}
}

func TestHandleCommand_UnknownAction(t *testing.T) {
	server := newTestServer(t, &fakeClipRepo{}, nil, "")

	body, _ := json.Marshal(CommandRequest{Action: "explode"})
	req := httptest.NewRequest("POST", "/commands", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown action, got %d", w.Code)
	}
}

func TestGetClips(t *testing.T) {
	repo := &fakeClipRepo{clips: []database.Clip{
		{Source: "microblog", CanonicalURL: "https://microblog.example/janedoe/posts/101"},
		{Source: "photos", CanonicalURL: "https://pics.example/p/abc"},
	}}
	server := newTestServer(t, repo, nil, "")

	req := httptest.NewRequest("GET", "/clips?limit=1", nil)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Clips []database.Clip `json:"clips"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Clips) != 1 {
		t.Errorf("Expected 1 clip with limit=1, got %d", len(resp.Clips))
	}
}

func TestGetHealth(t *testing.T) {
	server := newTestServer(t, &fakeClipRepo{}, nil, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health payload: %v", err)
	}
	if attached, ok := health["session_attached"].(bool); !ok || attached {
		t.Errorf("Expected session_attached false, got %v", health["session_attached"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(t, &fakeClipRepo{}, nil, "secret-key")

	// No key: rejected.
	req := httptest.NewRequest("GET", "/clips", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	// Wrong key: rejected.
	req = httptest.NewRequest("GET", "/clips", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	// Header key: accepted.
	req = httptest.NewRequest("GET", "/clips", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid key, got %d", w.Code)
	}

	// Bearer token: accepted.
	req = httptest.NewRequest("GET", "/clips", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}

	// Health endpoint stays open.
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected open health endpoint, got %d", w.Code)
	}
}
