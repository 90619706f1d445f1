package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
)

// ErrSessionNotFound is returned when no session is stored under an ID.
var ErrSessionNotFound = errors.New("session not found")

// Store persists session state in Badger so an authenticated session
// survives process restarts.
type Store struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewStore opens the session database at path. With reset true any existing
// database is deleted first.
func NewStore(path string, reset bool, logger arbor.ILogger) (*Store, error) {
	if reset {
		if _, err := os.Stat(path); err == nil {
			logger.Debug().Str("path", path).Msg("Deleting existing session database (reset_on_startup=true)")
			if err := os.RemoveAll(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Failed to delete session database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Session database initialized")
	return &Store{store: store, logger: logger}, nil
}

// SaveSession upserts the session under its ID.
func (s *Store) SaveSession(ctx context.Context, state *models.SessionState) error {
	if state.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	if err := s.store.Upsert(state.ID, state); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	s.logger.Debug().
		Str("session_id", state.ID).
		Int("cookies", len(state.Cookies)).
		Msg("Session persisted")
	return nil
}

// GetSession loads a session by ID, or ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*models.SessionState, error) {
	var state models.SessionState
	if err := s.store.Get(id, &state); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &state, nil
}

// DeleteSession removes a session; deleting a missing session is not an
// error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.Delete(id, &models.SessionState{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Debug().Str("session_id", id).Msg("Session deleted")
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

var _ interfaces.SessionStorage = (*Store)(nil)
