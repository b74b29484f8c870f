package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/stockmaster-sync/internal/database"
)

// collect returns every record of kind k modified after since, ordered by id.
// A nil since selects everything the tenant owns.
func collect[T any, P record[T]](ctx context.Context, q database.Querier, k kind[T, P], tenant string, since *time.Time) ([]T, error) {
	items, err := k.table.ListSince(ctx, q, tenant, since)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", k.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
