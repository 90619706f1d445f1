package interfaces

import (
	"context"

	"github.com/ternarybob/importo/internal/models"
)

// DeliverySink forwards normalized items to an external consumer. The returned
// status is the sink's HTTP response code; it is logged, not acted upon.
type DeliverySink interface {
	Deliver(ctx context.Context, items []models.ShoppingListItem) (status int, err error)
}
