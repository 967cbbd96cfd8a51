package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/post-comb/app/database"
)

// HTTPSender posts messages to a remote persistence endpoint as JSON and
// decodes the service's outcome envelope.
type HTTPSender struct {
	client     *http.Client
	persistURL string
	userAgent  string
}

var _ Sender = (*HTTPSender)(nil)

func NewHTTPSender(client *http.Client, persistURL, userAgent string) *HTTPSender {
	return &HTTPSender{client: client, persistURL: persistURL, userAgent: userAgent}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) (Outcome, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode message: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", s.persistURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to deliver message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{}, fmt.Errorf("persistence service returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read response: %w", err)
	}

	var outcome Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		// A 2xx with an unparseable body still counts as delivered.
		return Outcome{Success: true}, nil
	}
	return outcome, nil
}

// StoreSender archives records into the local clip repository.
type StoreSender struct {
	clipRepo database.ClipRepository
}

var _ Sender = (*StoreSender)(nil)

func NewStoreSender(clipRepo database.ClipRepository) *StoreSender {
	return &StoreSender{clipRepo: clipRepo}
}

func (s *StoreSender) Send(ctx context.Context, msg Message) (Outcome, error) {
	if msg.Action != ActionSavePost {
		return Outcome{}, fmt.Errorf("unsupported action: %s", msg.Action)
	}

	clip := database.Clip{
		Source:       msg.Data.Source,
		CanonicalURL: msg.Data.CanonicalURL,
		Body:         msg.Data.Body,
		AuthorName:   msg.Data.AuthorName,
		AuthorHandle: msg.Data.AuthorHandle,
		MediaURL:     msg.Data.MediaURL,
	}
	clip.ContentHash = database.HashClip(clip)

	// Identical content is already archived; re-clipping it is a success
	// without another write.
	if exists, existingURL, err := s.clipRepo.CheckDuplicate(clip.ContentHash); err == nil && exists {
		existing := ""
		if existingURL != nil {
			existing = *existingURL
		}
		slog.Debug("Clip content already archived", "url", clip.CanonicalURL, "existing", existing)
		return Outcome{Success: true}, nil
	}

	if err := s.clipRepo.UpsertClip(clip); err != nil {
		return Outcome{}, fmt.Errorf("failed to archive clip: %w", err)
	}

	return Outcome{Success: true}, nil
}

// MultiSender delivers through a primary sender and best-effort secondaries.
// The primary's outcome decides success; secondary failures are logged and
// otherwise ignored.
type MultiSender struct {
	primary     Sender
	secondaries []Sender
}

var _ Sender = (*MultiSender)(nil)

func NewMultiSender(primary Sender, secondaries ...Sender) *MultiSender {
	return &MultiSender{primary: primary, secondaries: secondaries}
}

func (s *MultiSender) Send(ctx context.Context, msg Message) (Outcome, error) {
	outcome, err := s.primary.Send(ctx, msg)

	for _, secondary := range s.secondaries {
		if _, secErr := secondary.Send(ctx, msg); secErr != nil {
			slog.Warn("Secondary channel delivery failed", "action", msg.Action, "error", secErr)
		}
	}

	return outcome, err
}
