// Package extract turns the list endpoint's unpredictable response bodies
// into normalized items. The endpoint answers JSON, HTML with an embedded
// state blob, or plain HTML depending on session quality and region, so
// parsing is an ordered chain of strategies where the first success wins.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/discovery"
	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
)

var (
	// ErrSessionRejected means the endpoint bounced the client back into the
	// signin flow. The bridged session is not good enough for the data
	// surface, which is the most common failure in practice.
	ErrSessionRejected = errors.New("redirected to signin, session rejected")

	// ErrNoStrategyMatched means every parsing strategy declined the body.
	ErrNoStrategyMatched = errors.New("no extraction strategy matched")
)

// EmbeddedMarkers are assignment prefixes that precede a JSON state blob
// inside a script tag. Tried in order.
var EmbeddedMarkers = []string{
	"window.__INITIAL_STATE__ =",
	"var awsData =",
	"window.AppCache =",
}

// itemIDKeys and itemValueKeys are the payload keys probed, in order, when
// normalizing a structured item.
var (
	itemIDKeys    = []string{"itemId", "id", "item_id"}
	itemValueKeys = []string{"value", "text", "name", "title"}
)

// scrapeMinRunes filters scraped fragments; anything this short is markup
// noise, not a list entry.
const scrapeMinRunes = 3

// Result carries the extracted items and the name of the strategy that
// produced them.
type Result struct {
	Items    []models.ShoppingListItem
	Strategy string
}

// Chain applies the extraction strategies to a response.
type Chain struct {
	siteRoot string
	logger   arbor.ILogger
}

func NewChain(siteRoot string, logger arbor.ILogger) *Chain {
	return &Chain{siteRoot: siteRoot, logger: logger}
}

// Extract normalizes a list response. The redirect guards run before any
// strategy; a body that would parse fine is still rejected when the final
// URL shows the session was bounced into signin or off the site entirely.
func (c *Chain) Extract(resp *interfaces.PageResponse) (*Result, error) {
	for _, marker := range discovery.SigninPathMarkers {
		if strings.Contains(resp.FinalURL, marker) {
			c.logger.Warn().
				Str("final_url", resp.FinalURL).
				Str("marker", marker).
				Msg("List fetch redirected to signin")
			return nil, ErrSessionRejected
		}
	}
	if resp.FinalURL != "" && !common.SameHost(c.siteRoot, resp.FinalURL) {
		c.logger.Warn().
			Str("final_url", resp.FinalURL).
			Str("site_root", c.siteRoot).
			Msg("List fetch left the storefront host")
		return nil, ErrSessionRejected
	}

	strategies := []struct {
		name  string
		parse func(body string) ([]models.ShoppingListItem, bool)
	}{
		{"direct-json", c.parseDirect},
		{"embedded-script", c.parseEmbedded},
		{"markup-scrape", c.parseScrape},
	}

	for _, s := range strategies {
		items, ok := s.parse(resp.Body)
		if !ok {
			continue
		}
		c.logger.Debug().
			Str("strategy", s.name).
			Int("items", len(items)).
			Msg("List extracted")
		return &Result{Items: items, Strategy: s.name}, nil
	}

	return nil, ErrNoStrategyMatched
}

// listEnvelope is the shape of both the direct JSON body and the embedded
// state blob: items at the top level, or nested one deep under "lists".
type listEnvelope struct {
	Items *[]json.RawMessage `json:"items"`
	Lists []struct {
		Items *[]json.RawMessage `json:"items"`
	} `json:"lists"`
}

func (e *listEnvelope) itemList() (*[]json.RawMessage, bool) {
	if e.Items != nil {
		return e.Items, true
	}
	if len(e.Lists) > 0 && e.Lists[0].Items != nil {
		return e.Lists[0].Items, true
	}
	return nil, false
}

func (c *Chain) parseDirect(body string) ([]models.ShoppingListItem, bool) {
	return parseEnvelope(body)
}

// parseEmbedded scans for a known assignment marker and slices the JSON
// between the marker and the nearest statement terminator, preferring one
// immediately before a closing script tag.
func (c *Chain) parseEmbedded(body string) ([]models.ShoppingListItem, bool) {
	for _, marker := range EmbeddedMarkers {
		idx := strings.Index(body, marker)
		if idx == -1 {
			continue
		}
		part := body[idx+len(marker):]

		end := strings.Index(part, ";</")
		if end == -1 {
			end = strings.Index(part, ";")
		}
		if end != -1 {
			part = part[:end]
		}
		blob := strings.TrimSuffix(strings.TrimSpace(part), ";")

		items, ok := parseEnvelope(blob)
		if !ok {
			continue
		}
		c.logger.Debug().Str("marker", marker).Msg("Embedded state blob parsed")
		return items, true
	}
	return nil, false
}

// parseScrape collects list-entry text from the markup. Elements carrying a
// stable per-item attribute win; otherwise anything with a list-item role
// is taken. Short fragments are dropped and duplicates collapse onto their
// first-seen casing.
func (c *Chain) parseScrape(body string) ([]models.ShoppingListItem, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, false
	}

	withID := true
	selection := doc.Find("[data-item-id]")
	if selection.Length() == 0 {
		withID = false
		selection = doc.Find(`[role="listitem"], li`)
	}
	if selection.Length() == 0 {
		return nil, false
	}

	var items []models.ShoppingListItem
	seen := make(map[string]bool)
	selection.Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) < scrapeMinRunes {
			return
		}
		key := strings.ToLower(text)
		if seen[key] {
			return
		}
		seen[key] = true

		item := models.ShoppingListItem{Value: text}
		if withID {
			item.ID = strings.TrimSpace(s.AttrOr("data-item-id", ""))
		}
		items = append(items, item)
	})
	return items, true
}

// parseEnvelope parses a JSON document and normalizes its item list. The
// bool reports whether the body had a recognizable list shape at all; an
// empty list is a valid success.
func parseEnvelope(body string) ([]models.ShoppingListItem, bool) {
	var envelope listEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, false
	}
	raw, ok := envelope.itemList()
	if !ok {
		return nil, false
	}

	items := make([]models.ShoppingListItem, 0, len(*raw))
	for _, entry := range *raw {
		if item, ok := normalizeItem(entry); ok {
			items = append(items, item)
		}
	}
	return items, true
}

// normalizeItem maps one raw payload entry onto a ShoppingListItem. Entries
// with no usable display text are dropped; the original payload rides along
// for the deletion operator.
func normalizeItem(raw json.RawMessage) (models.ShoppingListItem, bool) {
	// Bare strings are items with no identifier.
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return models.ShoppingListItem{}, false
		}
		return models.ShoppingListItem{Value: text, RawPayload: raw}, true
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.ShoppingListItem{}, false
	}

	item := models.ShoppingListItem{RawPayload: raw}
	for _, key := range itemIDKeys {
		if v, ok := stringField(payload, key); ok {
			item.ID = v
			break
		}
	}
	for _, key := range itemValueKeys {
		if v, ok := stringField(payload, key); ok {
			item.Value = v
			break
		}
	}
	if item.Value == "" {
		return models.ShoppingListItem{}, false
	}
	return item, true
}

// stringField reads a payload key as a string, accepting numbers for
// identifier fields.
func stringField(payload map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
