package interfaces

import (
	"context"

	"github.com/ternarybob/importo/internal/models"
)

// SessionStorage persists bridged-session state between cycles.
type SessionStorage interface {
	SaveSession(ctx context.Context, state *models.SessionState) error
	GetSession(ctx context.Context, id string) (*models.SessionState, error)
	DeleteSession(ctx context.Context, id string) error
}
