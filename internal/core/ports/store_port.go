package ports

import (
	"context"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
)

// EntityStore is the document store the services depend on. Get returns
// domain.ErrNotFound for absent keys, and driver failures are wrapped in
// domain.ErrStoreUnavailable.
type EntityStore interface {
	Get(ctx context.Context, kind domain.Kind, id int64) (*domain.Document, error)
	// Put upserts doc and assigns doc.ID when it is zero.
	Put(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, kind domain.Kind, id int64) error
	// Query returns one page ordered by key and whether more results remain.
	Query(ctx context.Context, q domain.Query) ([]*domain.Document, bool, error)
}
