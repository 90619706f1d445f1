// Package browser provides the chromedp navigation engine. It exists for
// targets that gate signin behind JavaScript challenges the plain HTTP
// engine cannot pass; one headless browser serves one cycle.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
	"github.com/ternarybob/importo/internal/transport"
)

// Options configure the browser allocator.
type Options struct {
	Headless  bool
	NoSandbox bool
	UserAgent string
	Timeout   time.Duration
}

// Navigator implements interfaces.Navigator over a headless Chrome instance.
// All page interactions share one tab so cookies and storage accumulate the
// way they would for a real user.
type Navigator struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        arbor.ILogger
	timeout       time.Duration

	mu         sync.Mutex
	lastStatus int64
	closed     bool
}

// NewNavigator launches a browser. The caller must Close it.
func NewNavigator(opts Options, logger arbor.ILogger) (*Navigator, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = transport.DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	flags := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	flags = append(flags,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)
	if opts.NoSandbox {
		flags = append(flags, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), flags...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	nav := &Navigator{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
		timeout:       timeout,
	}

	// Main-frame status codes only arrive through CDP events; the page
	// itself renders regardless of status.
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			nav.mu.Lock()
			nav.lastStatus = resp.Response.Status
			nav.mu.Unlock()
		}
	})

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug().
		Bool("headless", opts.Headless).
		Str("timeout", timeout.String()).
		Msg("Browser engine started")
	return nav, nil
}

// Navigate loads a URL and returns the rendered page.
func (n *Navigator) Navigate(ctx context.Context, url string) (*interfaces.PageResponse, error) {
	return n.run(ctx, chromedp.Navigate(url))
}

// SubmitForm injects a hidden form into the current page and submits it,
// which preserves the browser's cookie and referer behavior.
func (n *Navigator) SubmitForm(ctx context.Context, actionURL string, fields map[string]string) (*interfaces.PageResponse, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	script := fmt.Sprintf(`(function() {
		const form = document.createElement('form');
		form.method = 'POST';
		form.action = %q;
		const fields = %s;
		for (const name of Object.keys(fields)) {
			const input = document.createElement('input');
			input.type = 'hidden';
			input.name = name;
			input.value = fields[name];
			form.appendChild(input);
		}
		document.body.appendChild(form);
		form.submit();
	})()`, actionURL, string(encoded))

	return n.run(ctx,
		chromedp.Evaluate(script, nil),
		chromedp.Sleep(2*time.Second),
	)
}

// Cookies reads the browser's full cookie store.
func (n *Navigator) Cookies(ctx context.Context) ([]models.SessionCookie, error) {
	runCtx, cancel := n.pageContext(ctx)
	defer cancel()

	var out []models.SessionCookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, models.SessionCookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: strings.TrimPrefix(c.Domain, "."),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return out, nil
}

// Close shuts down the browser. Safe to call more than once.
func (n *Navigator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	n.browserCancel()
	n.allocCancel()
	n.logger.Debug().Msg("Browser engine stopped")
	return nil
}

// run executes actions, waits for the page to settle, and snapshots it.
func (n *Navigator) run(ctx context.Context, actions ...chromedp.Action) (*interfaces.PageResponse, error) {
	runCtx, cancel := n.pageContext(ctx)
	defer cancel()

	n.mu.Lock()
	n.lastStatus = 0
	n.mu.Unlock()

	var html, finalURL string
	all := append(actions,
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)
	if err := chromedp.Run(runCtx, all...); err != nil {
		return nil, err
	}

	n.mu.Lock()
	status := int(n.lastStatus)
	n.mu.Unlock()
	if status == 0 {
		// A rendered page with no observed document response (cache hit,
		// in-page navigation) counts as success.
		status = 200
	}

	n.logger.Debug().
		Int("status", status).
		Str("url", finalURL).
		Int("bytes", len(html)).
		Msg("Page rendered")
	return &interfaces.PageResponse{
		StatusCode: status,
		FinalURL:   finalURL,
		Body:       html,
	}, nil
}

// pageContext derives a per-operation context carrying both the caller's
// cancellation and the engine timeout.
func (n *Navigator) pageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancelCause := context.WithCancel(n.browserCtx)
	stop := context.AfterFunc(ctx, cancelCause)
	timed, cancelTimeout := context.WithTimeout(merged, n.timeout)
	return timed, func() {
		stop()
		cancelTimeout()
		cancelCause()
	}
}
