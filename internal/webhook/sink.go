// Package webhook delivers imported items to the configured endpoint.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
)

// payload is the delivery envelope. Count duplicates len(items) so simple
// consumers can skip parsing the array.
type payload struct {
	Items     []models.ShoppingListItem `json:"items"`
	Count     int                       `json:"count"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Sink posts the item list to a webhook URL. The response status is logged
// and returned, never acted upon; delivery consumers own their own retries.
type Sink struct {
	client *resty.Client
	url    string
	logger arbor.ILogger
}

// NewSink builds a sink for the given endpoint.
func NewSink(url string, timeout time.Duration, logger arbor.ILogger) *Sink {
	return &Sink{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		logger: logger,
	}
}

// Deliver posts the items. An unset URL is a silent no-op so the import can
// run in dry-run setups.
func (s *Sink) Deliver(ctx context.Context, items []models.ShoppingListItem) (int, error) {
	if s.url == "" {
		s.logger.Debug().Msg("No webhook configured, skipping delivery")
		return 0, nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload{Items: items, Count: len(items), Timestamp: time.Now().UTC()}).
		Post(s.url)
	if err != nil {
		return 0, fmt.Errorf("webhook delivery failed: %w", err)
	}

	s.logger.Info().
		Int("status", resp.StatusCode()).
		Int("count", len(items)).
		Msg("Webhook delivered")
	return resp.StatusCode(), nil
}

var _ interfaces.DeliverySink = (*Sink)(nil)
