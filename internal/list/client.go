// Package list talks to the shopping-list endpoints through a bridged
// session: one read of the full list, and per-item deletion for the optional
// clear-after-import step.
package list

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/importo/internal/extract"
	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
)

const (
	listPath   = "alexaquantum/sp/alexaShoppingList"
	listRef    = "list_d_wl_ys_list_1"
	deletePath = "alexaquantum/sp/deleteListItem"
)

// Client reads and clears the shopping list. The resty client must be a
// bridged session with the site root as its base URL.
type Client struct {
	http    *resty.Client
	chain   *extract.Chain
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewClient builds a list client. deleteDelay spaces deletion requests so a
// large clear does not look like a burst; zero disables pacing.
func NewClient(http *resty.Client, chain *extract.Chain, deleteDelay time.Duration, logger arbor.ILogger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if deleteDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(deleteDelay), 1)
	}
	return &Client{
		http:    http,
		chain:   chain,
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch reads the list endpoint and runs the extraction chain on whatever
// came back. Callers distinguish extract.ErrSessionRejected from other
// extraction failures.
func (c *Client) Fetch(ctx context.Context) (*extract.Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ref_", listRef).
		Get(listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shopping list: %w", err)
	}

	page := toPage(resp)
	if !page.Success() {
		return nil, &StatusError{StatusCode: page.StatusCode}
	}

	c.logger.Debug().
		Int("status", page.StatusCode).
		Int("bytes", len(page.Body)).
		Msg("Shopping list fetched")
	return c.chain.Extract(page)
}

// Clear deletes every item that carries an identifier. Items without one
// are skipped, and individual failures never abort the rest; partial
// clearing is an accepted outcome.
func (c *Client) Clear(ctx context.Context, items []models.ShoppingListItem) models.ClearStatus {
	status := models.ClearStatus{Attempted: len(items)}

	for _, item := range items {
		if !item.Deletable() {
			status.Skipped++
			c.logger.Debug().Str("value", item.Value).Msg("No identifier for item, skipping delete")
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			status.Failed++
			c.logger.Warn().Err(err).Msg("Clear interrupted")
			break
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"itemId": item.ID}).
			Post(deletePath)
		if err != nil {
			status.Failed++
			c.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Delete request failed")
			continue
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			status.Failed++
			c.logger.Warn().
				Int("status", resp.StatusCode()).
				Str("item_id", item.ID).
				Msg("Delete rejected")
			continue
		}

		status.Deleted++
		c.logger.Debug().Str("item_id", item.ID).Msg("Item deleted")
	}

	c.logger.Info().
		Int("attempted", status.Attempted).
		Int("deleted", status.Deleted).
		Int("skipped", status.Skipped).
		Int("failed", status.Failed).
		Msg("Clear finished")
	return status
}

// StatusError reports a non-success HTTP status from the list endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shopping list returned status %d", e.StatusCode)
}

func toPage(resp *resty.Response) *interfaces.PageResponse {
	finalURL := ""
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}
	return &interfaces.PageResponse{
		StatusCode: resp.StatusCode(),
		FinalURL:   finalURL,
		Body:       string(resp.Body()),
	}
}
