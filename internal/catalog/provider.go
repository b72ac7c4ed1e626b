package catalog

import (
	"context"
	"fmt"

	cerrors "github.com/storehouse-ng/storefront-chat/internal/errors"
)

// ErrStoreNotFound is returned when no public store has the requested slug.
var ErrStoreNotFound = fmt.Errorf("store %w", cerrors.ErrNotFound)

// Provider fetches a store context by slug.
type Provider interface {
	Load(ctx context.Context, slug string) (*StoreContext, error)
}

// Pinger is implemented by providers that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
