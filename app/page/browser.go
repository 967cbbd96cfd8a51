package page

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// bindingName is the function the injected script calls to reach the engine.
const bindingName = "__postCombNotify"

// observerScript runs in every document the session navigates to. It watches
// the tree with a MutationObserver and forwards clicks on injected controls
// through the binding. Installation is guarded so SPA re-renders cannot
// stack observers.
const observerScript = `(function() {
	if (window.__pcObserverInstalled) { return; }
	window.__pcObserverInstalled = true;
	var notify = function(msg) {
		if (window.` + bindingName + `) { window.` + bindingName + `(msg); }
	};
	var observer = new MutationObserver(function() {
		notify('{"type":"mutation"}');
	});
	observer.observe(document.documentElement, { childList: true, subtree: true });
	document.addEventListener('click', function(ev) {
		var el = ev.target && ev.target.closest ? ev.target.closest('[` + ControlAttr + `]') : null;
		if (!el) { return; }
		ev.preventDefault();
		ev.stopPropagation();
		notify(JSON.stringify({ type: 'activate', key: el.getAttribute('` + ControlAttr + `') }));
	}, true);
})();`

type bindingPayload struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// BrowserSession drives a real page in a headless browser over the DevTools
// protocol.
type BrowserSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	mutations   chan struct{}
	activations chan string
}

var _ Session = (*BrowserSession)(nil)

type BrowserOptions struct {
	Headless  bool
	UserAgent string
}

// NewBrowserSession launches a browser, navigates to pageURL, and installs
// the mutation observer and activation binding.
func NewBrowserSession(parent context.Context, pageURL string, opts BrowserOptions) (*BrowserSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &BrowserSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		mutations:   make(chan struct{}, 16),
		activations: make(chan string, 16),
	}

	chromedp.ListenTarget(ctx, s.handleEvent)

	err := chromedp.Run(ctx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(pageURL),
		chromedp.Evaluate(observerScript, nil),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to attach to page: %w", err)
	}

	slog.Info("Browser session attached", "url", pageURL)

	return s, nil
}

func (s *BrowserSession) handleEvent(ev interface{}) {
	call, ok := ev.(*runtime.EventBindingCalled)
	if !ok || call.Name != bindingName {
		return
	}

	var payload bindingPayload
	if err := json.Unmarshal([]byte(call.Payload), &payload); err != nil {
		slog.Debug("Unparseable binding payload", "payload", call.Payload, "error", err)
		return
	}

	switch payload.Type {
	case "mutation":
		select {
		case s.mutations <- struct{}{}:
		default:
			// A pending signal already covers this burst.
		}
	case "activate":
		select {
		case s.activations <- payload.Key:
		default:
			slog.Warn("Activation dropped, channel full", "key", payload.Key)
		}
	}
}

func (s *BrowserSession) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (s *BrowserSession) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to snapshot document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return doc, nil
}

const injectControlJS = `(function(sel, idx, key) {
	var units = document.querySelectorAll(sel);
	var unit = units[idx];
	if (!unit) { return false; }
	if (unit.hasAttribute('%[1]s')) { return true; }
	unit.setAttribute('%[1]s', '1');
	if (getComputedStyle(unit).position === 'static') {
		unit.style.position = 'relative';
	}
	var btn = document.createElement('button');
	btn.setAttribute('%[2]s', key);
	btn.setAttribute('data-pc-state', 'idle');
	btn.className = 'pc-clip';
	btn.textContent = 'Clip';
	unit.appendChild(btn);
	return true;
})(%[3]s, %[4]d, %[5]s)`

func (s *BrowserSession) InjectControl(ctx context.Context, selector string, index int, key string) error {
	js := fmt.Sprintf(injectControlJS, MarkAttr, ControlAttr,
		jsString(selector), index, jsString(key))

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("failed to inject control: %w", err)
	}
	if !ok {
		return fmt.Errorf("no unit at index %d for selector %q", index, selector)
	}
	return nil
}

func (s *BrowserSession) SetControlState(ctx context.Context, key string, state ControlState) error {
	js := fmt.Sprintf(
		`(function(key, state) {
			var el = document.querySelector('[%s="' + key + '"]');
			if (el) { el.setAttribute('data-pc-state', state); }
		})(%s, %s)`,
		ControlAttr, jsString(key), jsString(string(state)))

	if err := s.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("failed to set control state: %w", err)
	}
	return nil
}

func (s *BrowserSession) RemoveControl(ctx context.Context, key string) error {
	js := fmt.Sprintf(
		`(function(key) {
			var el = document.querySelector('[%s="' + key + '"]');
			if (el && el.parentNode) { el.parentNode.removeChild(el); }
		})(%s)`,
		ControlAttr, jsString(key))

	if err := s.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("failed to remove control: %w", err)
	}
	return nil
}

func (s *BrowserSession) RemoveInjected(ctx context.Context) error {
	js := fmt.Sprintf(
		`document.querySelectorAll('[%s]').forEach(function(el) {
			if (el.parentNode) { el.parentNode.removeChild(el); }
		})`,
		ControlAttr)

	if err := s.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("failed to remove injected UI: %w", err)
	}
	return nil
}

func (s *BrowserSession) Mutations() <-chan struct{} {
	return s.mutations
}

func (s *BrowserSession) Activations() <-chan string {
	return s.activations
}

// Alive probes the remote evaluation channel with a trivial expression. Any
// failure, including the browser process having gone away, reads as
// invalidation.
func (s *BrowserSession) Alive(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var one int
	if err := s.run(probeCtx, chromedp.Evaluate("1", &one)); err != nil {
		return fmt.Errorf("host context unreachable: %w", err)
	}
	return nil
}

func (s *BrowserSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

// run executes actions on the session's browser context while honoring the
// caller's deadline.
func (s *BrowserSession) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
