package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir()+"/sessions", false, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testState() *models.SessionState {
	return &models.SessionState{
		ID:       "amazon:de",
		SiteRoot: "https://www.amazon.de/",
		Cookies: []models.SessionCookie{
			{Name: "session-id", Value: "abc", Domain: "amazon.de"},
			{Name: "ubid-main", Value: "def", Domain: "www.amazon.de"},
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testState()))

	loaded, err := store.GetSession(ctx, "amazon:de")
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.de/", loaded.SiteRoot)
	require.Len(t, loaded.Cookies, 2)
	assert.Equal(t, "session-id", loaded.Cookies[0].Name)
	assert.False(t, loaded.CreatedAt.IsZero())
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestSessionUpsertKeepsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testState()
	require.NoError(t, store.SaveSession(ctx, first))
	created := first.CreatedAt

	time.Sleep(5 * time.Millisecond)

	second := testState()
	second.CreatedAt = created
	second.Cookies = second.Cookies[:1]
	require.NoError(t, store.SaveSession(ctx, second))

	loaded, err := store.GetSession(ctx, "amazon:de")
	require.NoError(t, err)
	assert.Equal(t, created.Unix(), loaded.CreatedAt.Unix())
	assert.Len(t, loaded.Cookies, 1)
	assert.True(t, loaded.UpdatedAt.After(loaded.CreatedAt))
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), "amazon:com")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSessionIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testState()))
	require.NoError(t, store.DeleteSession(ctx, "amazon:de"))
	require.NoError(t, store.DeleteSession(ctx, "amazon:de"), "double delete is fine")

	_, err := store.GetSession(ctx, "amazon:de")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSaveSessionRequiresID(t *testing.T) {
	store := newTestStore(t)

	state := testState()
	state.ID = ""
	assert.Error(t, store.SaveSession(context.Background(), state))
}
