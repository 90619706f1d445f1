package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/importo/internal/common"
)

const siteRoot = "https://example.test"

func TestFindLoginLinkByAnchorID(t *testing.T) {
	html := `<html><body>
		<a href="/gp/help">Help</a>
		<a id="nav-link-accountList" href="/ap/signin?x=1">Sign in</a>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	url, err := FindLoginLink(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/ap/signin?x=1", url)
}

func TestFindLoginLinkFallbackToSigninPath(t *testing.T) {
	html := `<html><body>
		<a href="/gp/help">Help</a>
		<a href="/ap/signin?ref=nav">Your account</a>
		<a href="/ap/signin?ref=later">Second</a>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	url, err := FindLoginLink(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/ap/signin?ref=nav", url, "document order breaks ties")
}

func TestFindLoginLinkFormFallback(t *testing.T) {
	html := `<html><body>
		<form action="/ap/signin"><input name="x"/></form>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	url, err := FindLoginLink(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/ap/signin", url)
}

func TestFindLoginLinkNotFound(t *testing.T) {
	doc, err := ParseDocument(`<html><body><a href="/about">About</a></body></html>`)
	require.NoError(t, err)

	_, err = FindLoginLink(doc, siteRoot, common.GetLogger())
	assert.ErrorIs(t, err, ErrLoginLinkNotFound)
}

func TestFindSigninFormPrefersNamedForm(t *testing.T) {
	html := `<html><body>
		<form action="/search"><input name="q"/></form>
		<form name="signIn" action="//example.test/ap/signin/submit">
			<input type="hidden" name="appActionToken" value="tok123"/>
			<input type="email" name="email" value=""/>
			<input type="password" name="password" value=""/>
		</form>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	form, err := FindSigninForm(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/ap/signin/submit", form.ActionURL)
	assert.Equal(t, 3, form.Len())
	token, ok := form.Get("appActionToken")
	require.True(t, ok)
	assert.Equal(t, "tok123", token)

	// hidden inputs keep document order
	fields := form.Fields()
	assert.Equal(t, "appActionToken", fields[0].Name)
	assert.Equal(t, "email", fields[1].Name)
}

func TestFindSigninFormFallsBackToFirstForm(t *testing.T) {
	html := `<html><body>
		<form action="/whatever"><input name="a" value="1"/></form>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	form, err := FindSigninForm(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/whatever", form.ActionURL)
}

func TestFindFormActionMissing(t *testing.T) {
	doc, err := ParseDocument(`<html><body><form><input name="a"/></form></body></html>`)
	require.NoError(t, err)

	_, err = FindSigninForm(doc, siteRoot, common.GetLogger())
	assert.ErrorIs(t, err, ErrActionMissing)
}

func TestFindFormNotFound(t *testing.T) {
	doc, err := ParseDocument(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)

	_, err = FindSigninForm(doc, siteRoot, common.GetLogger())
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestDiscoveryIsIdempotent(t *testing.T) {
	html := `<html><body>
		<form name="signIn" action="/ap/signin/submit">
			<input type="hidden" name="token" value="t"/>
			<input name="email"/>
		</form>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	first, err := FindSigninForm(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)
	second, err := FindSigninForm(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)

	assert.Equal(t, first.ActionURL, second.ActionURL)
	assert.Equal(t, first.Fields(), second.Fields())
}

func TestDuplicateFieldNamesFirstWins(t *testing.T) {
	html := `<html><body>
		<form action="/submit">
			<input name="email" value="first"/>
			<input name="email" value="second"/>
		</form>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	form, err := FindSigninForm(doc, siteRoot, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, form.Len())
	v, _ := form.Get("email")
	assert.Equal(t, "first", v)
}
