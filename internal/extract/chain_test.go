package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/interfaces"
)

const testSiteRoot = "https://www.amazon.de/"

func extractBody(t *testing.T, body string) (*Result, error) {
	t.Helper()
	chain := NewChain(testSiteRoot, common.GetLogger())
	return chain.Extract(&interfaces.PageResponse{
		StatusCode: 200,
		FinalURL:   "https://www.amazon.de/alexaquantum/sp/alexaShoppingList",
		Body:       body,
	})
}

func TestExtractDirectJSON(t *testing.T) {
	result, err := extractBody(t, `{"items":[{"id":"1","value":"Milk"},{"id":"2","value":"Bread"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "direct-json", result.Strategy)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "1", result.Items[0].ID)
	assert.Equal(t, "Milk", result.Items[0].Value)
	assert.Equal(t, "2", result.Items[1].ID)
	assert.Equal(t, "Bread", result.Items[1].Value)
}

func TestExtractDirectJSONNestedLists(t *testing.T) {
	result, err := extractBody(t, `{"lists":[{"items":[{"itemId":"a","text":"Eggs"}]}]}`)
	require.NoError(t, err)
	assert.Equal(t, "direct-json", result.Strategy)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "a", result.Items[0].ID)
	assert.Equal(t, "Eggs", result.Items[0].Value)
}

func TestExtractDirectJSONEmptyList(t *testing.T) {
	result, err := extractBody(t, `{"items":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "direct-json", result.Strategy)
	assert.Empty(t, result.Items)
}

func TestExtractNormalizesVariantKeys(t *testing.T) {
	result, err := extractBody(t, `{"items":[
		{"item_id":42,"name":"Butter"},
		"Plain string item",
		{"id":"x"},
		{"value":"No identifier"}
	]}`)
	require.NoError(t, err)
	require.Len(t, result.Items, 3, "the entry without display text is dropped")

	assert.Equal(t, "42", result.Items[0].ID, "numeric identifiers become strings")
	assert.Equal(t, "Butter", result.Items[0].Value)
	assert.True(t, result.Items[0].Deletable())

	assert.Empty(t, result.Items[1].ID)
	assert.Equal(t, "Plain string item", result.Items[1].Value)
	assert.False(t, result.Items[1].Deletable())

	assert.Equal(t, "No identifier", result.Items[2].Value)
}

func TestExtractEmbeddedScript(t *testing.T) {
	body := `<html><head><script>
		window.__INITIAL_STATE__ = {"items":[{"id":"7","value":"Coffee"}]};</script>
	</head><body></body></html>`

	result, err := extractBody(t, body)
	require.NoError(t, err)
	assert.Equal(t, "embedded-script", result.Strategy)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Coffee", result.Items[0].Value)
}

func TestExtractEmbeddedScriptSecondMarker(t *testing.T) {
	body := `<html><script>var awsData = {"lists":[{"items":[{"id":"9","value":"Tea"}]}]};</script>
	<body><p>rendered page</p></body></html>`

	result, err := extractBody(t, body)
	require.NoError(t, err)
	assert.Equal(t, "embedded-script", result.Strategy)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Tea", result.Items[0].Value)
}

func TestExtractStrategyPrecedence(t *testing.T) {
	// Valid direct JSON that also contains an embedded marker in a value;
	// strategy 1 must win.
	body := `{"items":[{"id":"1","value":"window.AppCache = is not code here"}],"note":"x"}`

	result, err := extractBody(t, body)
	require.NoError(t, err)
	assert.Equal(t, "direct-json", result.Strategy)
}

func TestExtractMarkupScrapeByItemAttribute(t *testing.T) {
	body := `<html><body>
		<div data-item-id="10">Milk</div>
		<div data-item-id="11">milk</div>
		<div data-item-id="12">OJ</div>
	</body></html>`

	result, err := extractBody(t, body)
	require.NoError(t, err)
	assert.Equal(t, "markup-scrape", result.Strategy)
	require.Len(t, result.Items, 1, "case-insensitive dedupe and short-text filter")
	assert.Equal(t, "Milk", result.Items[0].Value, "first-seen casing wins")
	assert.Equal(t, "10", result.Items[0].ID)
}

func TestExtractMarkupScrapeListItemFallback(t *testing.T) {
	body := `<html><body><ul>
		<li>Bananas</li>
		<li>Bread</li>
		<li>Bananas</li>
		<li>ok</li>
	</ul></body></html>`

	result, err := extractBody(t, body)
	require.NoError(t, err)
	assert.Equal(t, "markup-scrape", result.Strategy)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Bananas", result.Items[0].Value)
	assert.Equal(t, "Bread", result.Items[1].Value)
	assert.False(t, result.Items[0].Deletable(), "scraped entries carry no identifier")
}

func TestExtractSessionRejectedShortCircuits(t *testing.T) {
	chain := NewChain(testSiteRoot, common.GetLogger())
	_, err := chain.Extract(&interfaces.PageResponse{
		StatusCode: 200,
		FinalURL:   "https://www.amazon.de/ap/signin?openid.return_to=...",
		Body:       `{"items":[{"id":"1","value":"Milk"}]}`,
	})
	assert.ErrorIs(t, err, ErrSessionRejected, "valid body must not rescue a bounced session")
}

func TestExtractOffSiteRedirectRejected(t *testing.T) {
	chain := NewChain(testSiteRoot, common.GetLogger())
	_, err := chain.Extract(&interfaces.PageResponse{
		StatusCode: 200,
		FinalURL:   "https://accounts.example.net/portal",
		Body:       `{"items":[{"id":"1","value":"Milk"}]}`,
	})
	assert.ErrorIs(t, err, ErrSessionRejected, "a redirect off the storefront host is a bounced session")
}

func TestExtractNoStrategyMatched(t *testing.T) {
	_, err := extractBody(t, `<html><body><p>Nothing list-like here</p></body></html>`)
	assert.ErrorIs(t, err, ErrNoStrategyMatched)
}
