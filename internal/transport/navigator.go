// Package transport provides the plain-HTTP navigation engine. It drives the
// login flow with a cookie-aware resty client instead of a browser, which is
// the default engine: cheaper, faster, and sufficient while the target does
// not gate signin behind JavaScript.
package transport

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
)

// DefaultUserAgent is sent when the configuration does not override it.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// browserHeaders make the client look like an ordinary browser session.
// The target serves a degraded page to clients without them.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
}

// HTTPNavigator implements interfaces.Navigator over resty. The underlying
// cookie jar handles replay; a separate recorder keeps every cookie the
// server ever set, because jars cannot be enumerated for session export.
type HTTPNavigator struct {
	client *resty.Client
	logger arbor.ILogger

	mu      sync.Mutex
	order   []string
	cookies map[string]models.SessionCookie
}

// NewHTTPNavigator builds a navigator with a fresh cookie jar. An empty
// userAgent selects DefaultUserAgent.
func NewHTTPNavigator(userAgent string, timeout time.Duration, logger arbor.ILogger) (*HTTPNavigator, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New().
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeaders(browserHeaders)

	nav := &HTTPNavigator{
		client:  client,
		logger:  logger,
		cookies: make(map[string]models.SessionCookie),
	}
	// Recording sits below the redirect-following client so Set-Cookie
	// values from intermediate hops are captured too.
	client.SetTransport(&cookieRecorder{
		next: cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport),
		nav:  nav,
	})
	return nav, nil
}

// Navigate fetches a URL, following redirects.
func (n *HTTPNavigator) Navigate(ctx context.Context, url string) (*interfaces.PageResponse, error) {
	resp, err := n.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	return n.toPage(resp), nil
}

// SubmitForm posts url-encoded fields to the action URL.
func (n *HTTPNavigator) SubmitForm(ctx context.Context, actionURL string, fields map[string]string) (*interfaces.PageResponse, error) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(fields).
		Post(actionURL)
	if err != nil {
		return nil, err
	}
	return n.toPage(resp), nil
}

// Cookies returns every cookie observed on this navigator, oldest first.
// Later values for the same cookie overwrite earlier ones in place.
func (n *HTTPNavigator) Cookies(_ context.Context) ([]models.SessionCookie, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]models.SessionCookie, 0, len(n.order))
	for _, key := range n.order {
		out = append(out, n.cookies[key])
	}
	return out, nil
}

// Close is a no-op; the client holds no resources beyond pooled connections.
func (n *HTTPNavigator) Close() error {
	return nil
}

func (n *HTTPNavigator) toPage(resp *resty.Response) *interfaces.PageResponse {
	finalURL := ""
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}
	n.logger.Debug().
		Int("status", resp.StatusCode()).
		Str("url", finalURL).
		Int("bytes", len(resp.Body())).
		Msg("Page fetched")
	return &interfaces.PageResponse{
		StatusCode: resp.StatusCode(),
		FinalURL:   finalURL,
		Body:       string(resp.Body()),
	}
}

// record captures Set-Cookie values so the session can later be exported to
// a bridged API client. Cookie jars cannot be enumerated, hence the shadow
// copy.
func (n *HTTPNavigator) record(req *http.Request, resp *http.Response) {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}
	host := ""
	if req.URL != nil {
		host = req.URL.Hostname()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = host
		}
		key := c.Name + "|" + domain
		if _, seen := n.cookies[key]; !seen {
			n.order = append(n.order, key)
		}
		n.cookies[key] = models.SessionCookie{Name: c.Name, Value: c.Value, Domain: domain}
	}
}

// cookieRecorder is a pass-through RoundTripper that feeds every response's
// cookies to the navigator, including redirect hops the resty callbacks
// never see.
type cookieRecorder struct {
	next http.RoundTripper
	nav  *HTTPNavigator
}

func (r *cookieRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err == nil && resp != nil {
		r.nav.record(req, resp)
	}
	return resp, err
}
