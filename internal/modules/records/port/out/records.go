package out

import (
	"context"

	"notegenius/internal/modules/records/domain"
)

type Repository interface {
	Insert(ctx context.Context, record domain.Record) error
	// InsertIfNoActive inserts record unless the user already owns an active
	// record; it reports whether the insert happened.
	InsertIfNoActive(ctx context.Context, record domain.Record) (bool, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	Update(ctx context.Context, id string, patch domain.Patch) error
	AddCounters(ctx context.Context, id string, delta domain.Counters) error
	FindActive(ctx context.Context, userID string) (domain.Record, bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Record, error)
}
