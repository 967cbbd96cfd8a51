package page

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// StaticSession is an in-memory Session over an HTML document. It backs the
// one-shot clip mode (fetched pages are static by definition) and every
// engine test; mutations, navigations, and activations are injected
// synthetically.
type StaticSession struct {
	mu          sync.RWMutex
	doc         *goquery.Document
	url         string
	aliveErr    error
	mutations   chan struct{}
	activations chan string
}

var _ Session = (*StaticSession)(nil)

func NewStaticSession(pageURL, html string) (*StaticSession, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &StaticSession{
		doc:         doc,
		url:         pageURL,
		mutations:   make(chan struct{}, 16),
		activations: make(chan string, 16),
	}, nil
}

func (s *StaticSession) URL(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.aliveErr != nil {
		return "", s.aliveErr
	}
	return s.url, nil
}

func (s *StaticSession) Document(ctx context.Context) (*goquery.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.aliveErr != nil {
		return nil, s.aliveErr
	}

	// Re-parse so callers get an isolated snapshot, matching the browser
	// session's semantics.
	html, err := s.doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *StaticSession) InjectControl(ctx context.Context, selector string, index int, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aliveErr != nil {
		return s.aliveErr
	}

	unit := s.doc.Find(selector).Eq(index)
	if unit.Length() == 0 {
		return fmt.Errorf("no unit at index %d for selector %q", index, selector)
	}

	if _, marked := unit.Attr(MarkAttr); marked {
		return nil
	}
	unit.SetAttr(MarkAttr, "1")

	// Hosting an overlaid control needs a positioned ancestor; only touch
	// layout when the unit is statically positioned.
	if style, _ := unit.Attr("style"); !strings.Contains(style, "position:") {
		unit.SetAttr("style", strings.TrimSpace(style+" position: relative;"))
	}

	unit.AppendHtml(fmt.Sprintf(
		`<button %s=%q data-pc-state="idle" class="pc-clip">Clip</button>`,
		ControlAttr, key))

	return nil
}

func (s *StaticSession) SetControlState(ctx context.Context, key string, state ControlState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aliveErr != nil {
		return s.aliveErr
	}

	s.controlLocked(key).SetAttr("data-pc-state", string(state))
	return nil
}

func (s *StaticSession) RemoveControl(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aliveErr != nil {
		return s.aliveErr
	}

	s.controlLocked(key).Remove()
	return nil
}

func (s *StaticSession) RemoveInjected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Find("[" + ControlAttr + "]").Remove()
	return nil
}

func (s *StaticSession) Mutations() <-chan struct{} {
	return s.mutations
}

func (s *StaticSession) Activations() <-chan string {
	return s.activations
}

func (s *StaticSession) Alive(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliveErr
}

// Close ends the session: every subsequent host call fails, the same way a
// closed browser session would.
func (s *StaticSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aliveErr == nil {
		s.aliveErr = fmt.Errorf("session closed")
	}
	return nil
}

func (s *StaticSession) controlLocked(key string) *goquery.Selection {
	return s.doc.Find(fmt.Sprintf("[%s=%q]", ControlAttr, key))
}

// The methods below simulate host-page activity. They drive tests and have
// no counterpart on the browser session, where the page itself is the actor.

// SetHTML replaces the document and signals a mutation.
func (s *StaticSession) SetHTML(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.SimulateMutation()
	return nil
}

// Navigate changes the current location and signals a mutation, the way a
// single-page application rewrites history during render.
func (s *StaticSession) Navigate(pageURL, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	s.mu.Lock()
	s.url = pageURL
	s.doc = doc
	s.mu.Unlock()

	s.SimulateMutation()
	return nil
}

// SimulateMutation signals one structural change notification.
func (s *StaticSession) SimulateMutation() {
	select {
	case s.mutations <- struct{}{}:
	default:
	}
}

// SimulateActivation delivers a user activation of the keyed control.
func (s *StaticSession) SimulateActivation(key string) {
	select {
	case s.activations <- key:
	default:
	}
}

// Invalidate makes every subsequent host call fail, mimicking revocation of
// the execution context while the page keeps running.
func (s *StaticSession) Invalidate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliveErr = err
}

// ControlCount reports how many injected controls are present.
func (s *StaticSession) ControlCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Find("[" + ControlAttr + "]").Length()
}
