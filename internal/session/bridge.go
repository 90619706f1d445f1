// Package session turns an authenticated browser or HTTP login into a
// reusable API client, and persists that state between cycles.
package session

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/models"
	"github.com/ternarybob/importo/internal/transport"
)

// deviceHeaders mimic the companion mobile app; the list endpoints answer
// JSON only to clients that send them.
var deviceHeaders = map[string]string{
	"Accept":           "application/json, text/plain, */*",
	"Accept-Language":  "en-US,en;q=0.9",
	"X-Requested-With": "XMLHttpRequest",
}

// BridgeOptions configure the bridged client.
type BridgeOptions struct {
	SiteRoot  string
	UserAgent string
	Timeout   time.Duration
}

// NewBridgedClient builds a resty client carrying the given cookies, so list
// reads and deletes run over plain HTTP regardless of which engine performed
// the login. Cookies without a domain are attributed to the site root.
func NewBridgedClient(cookies []models.SessionCookie, opts BridgeOptions, logger arbor.ILogger) (*resty.Client, error) {
	root, err := url.Parse(opts.SiteRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid site root %q: %w", opts.SiteRoot, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	// The jar wants cookies grouped by origin URL.
	byHost := make(map[string][]*http.Cookie)
	var hosts []string
	for _, c := range cookies {
		host := c.Domain
		if host == "" {
			host = root.Hostname()
		}
		if _, seen := byHost[host]; !seen {
			hosts = append(hosts, host)
		}
		byHost[host] = append(byHost[host], &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	for _, host := range hosts {
		origin := &url.URL{Scheme: "https", Host: host, Path: "/"}
		jar.SetCookies(origin, byHost[host])
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = transport.DefaultUserAgent
	}

	client := resty.New().
		SetCookieJar(jar).
		SetBaseURL(opts.SiteRoot).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeaders(deviceHeaders)
	client.SetTransport(cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport))

	logger.Debug().
		Int("cookies", len(cookies)).
		Int("hosts", len(hosts)).
		Str("site_root", opts.SiteRoot).
		Msg("Session bridged to HTTP client")
	return client, nil
}
