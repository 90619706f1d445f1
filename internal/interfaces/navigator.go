package interfaces

import (
	"context"

	"github.com/ternarybob/importo/internal/models"
)

// PageResponse is the observable result of a navigation or form submission.
// FinalURL is the URL after redirects; Body is the full response text.
type PageResponse struct {
	StatusCode int
	FinalURL   string
	Body       string
}

// Success reports whether the response carries a 2xx status.
func (r *PageResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Navigator is the transport the authentication machine drives. It can be a
// real browser engine or a plain HTTP client; the machine never knows which.
type Navigator interface {
	// Navigate fetches a URL and returns the resulting page.
	Navigate(ctx context.Context, url string) (*PageResponse, error)

	// SubmitForm posts form fields to an absolute action URL and returns the
	// resulting page.
	SubmitForm(ctx context.Context, actionURL string, fields map[string]string) (*PageResponse, error)

	// Cookies returns the transport's current cookie set.
	Cookies(ctx context.Context) ([]models.SessionCookie, error)

	// Close releases any underlying resource (browser contexts in
	// particular). Safe to call more than once.
	Close() error
}

// NavigatorFactory creates a fresh Navigator scoped to one cycle.
type NavigatorFactory func(ctx context.Context) (Navigator, error)
