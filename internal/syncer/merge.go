package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/store"
)

// Outcome is what the merge engine did with one incoming record.
type Outcome int

const (
	Inserted Outcome = iota
	Updated
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Stats counts merge outcomes for one entity kind.
type Stats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

func (s *Stats) add(o Outcome) {
	switch o {
	case Inserted:
		s.Inserted++
	case Updated:
		s.Updated++
	case Skipped:
		s.Skipped++
	}
}

// RecordError ties a merge failure to the uploaded record that caused it.
type RecordError struct {
	Kind  string
	Index int
	ID    int64
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field(), e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Field is the JSON path of the record within the sync request.
func (e *RecordError) Field() string {
	if e.Kind == "settings" {
		return e.Kind
	}
	return fmt.Sprintf("%s[%d]", e.Kind, e.Index)
}

// record constrains P to be the pointer type of T and a models.Record.
type record[T any] interface {
	*T
	models.Record
}

// kind binds an entity type to its table.
type kind[T any, P record[T]] struct {
	name  string
	table store.Table[T]
}

// markerResolution is the precision updated_at is stored with.
const markerResolution = time.Microsecond

// mergeOne applies a single incoming record under last-writer-wins. now is the
// transaction's server stamp.
func mergeOne[T any, P record[T]](ctx context.Context, q database.Querier, k kind[T, P], tenant string, rec T, now time.Time) (Outcome, error) {
	incoming := P(&rec)
	id := incoming.Key()
	claimed := incoming.Modified().Truncate(markerResolution)

	existing, err := k.table.Get(ctx, q, tenant, id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		incoming.Touch(now)
		err = k.table.Insert(ctx, q, tenant, &rec)
		if err == nil {
			return Inserted, nil
		}
		if !database.IsUniqueViolation(err) {
			return 0, fmt.Errorf("merge %s %d: %w", k.name, id, err)
		}
		// Someone created it between the lookup and the insert: settle it
		// the same way as any other existing row.
		existing, err = k.table.Get(ctx, q, tenant, id)
		if err != nil {
			return 0, fmt.Errorf("merge %s %d: reload after conflict: %w", k.name, id, err)
		}
	case err != nil:
		return 0, fmt.Errorf("merge %s %d: %w", k.name, id, err)
	}

	if !claimed.After(P(existing).Modified()) {
		return Skipped, nil
	}

	incoming.Touch(now)
	if err := k.table.Update(ctx, q, tenant, &rec); err != nil {
		return 0, fmt.Errorf("merge %s %d: %w", k.name, id, err)
	}

	return Updated, nil
}

// mergeAll applies records in payload order and stops at the first error.
func mergeAll[T any, P record[T]](ctx context.Context, q database.Querier, k kind[T, P], tenant string, records []T, now time.Time) (Stats, error) {
	var stats Stats
	for i, rec := range records {
		outcome, err := mergeOne(ctx, q, k, tenant, rec, now)
		if err != nil {
			return stats, &RecordError{Kind: k.name, Index: i, ID: P(&rec).Key(), Err: err}
		}
		stats.add(outcome)
	}
	return stats, nil
}
