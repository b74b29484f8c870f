package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safar/stockmaster-sync/internal/database"
)

// Table is the Entity Store contract for one entity kind. Every operation is
// scoped to a tenant; there is no way to address another tenant's rows.
type Table[T any] interface {
	Name() string
	Get(ctx context.Context, q database.Querier, tenant string, id int64) (*T, error)
	Insert(ctx context.Context, q database.Querier, tenant string, rec *T) error
	Update(ctx context.Context, q database.Querier, tenant string, rec *T) error
	ListSince(ctx context.Context, q database.Querier, tenant string, since *time.Time) ([]T, error)
}

// Lister serves the read-only listing endpoints.
type Lister[T any] interface {
	Table[T]
	ListPage(ctx context.Context, q database.Querier, tenant string, page, pageSize int) (*OffsetPage, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// tableDef describes how one entity maps onto its SQL table. columns lists
// every stored column except tenant_id, in the order values returns them and
// scan reads them.
type tableDef[T any] struct {
	name      string
	singleton bool
	tombstone bool
	columns   []string
	immutable map[string]bool
	values    func(*T) []any
	scan      func(scanner) (T, error)
}

func (d *tableDef[T]) Name() string { return d.name }

func (d *tableDef[T]) selectSQL() string {
	return "SELECT " + strings.Join(d.columns, ", ") + " FROM " + d.name + " WHERE tenant_id = $1"
}

func (d *tableDef[T]) keyFilter() string {
	if d.singleton {
		return ""
	}
	return " AND id = $2"
}

func (d *tableDef[T]) keyArgs(tenant string, id int64) []any {
	if d.singleton {
		return []any{tenant}
	}
	return []any{tenant, id}
}

func (d *tableDef[T]) conflictTarget() string {
	if d.singleton {
		return "(tenant_id)"
	}
	return "(tenant_id, id)"
}

func (d *tableDef[T]) Get(ctx context.Context, q database.Querier, tenant string, id int64) (*T, error) {
	query := d.selectSQL() + d.keyFilter()

	rec, err := d.scan(q.QueryRowContext(ctx, query, d.keyArgs(tenant, id)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", d.name, err)
	}

	return &rec, nil
}

// Insert adds rec as a new row. A row that already exists under the same key
// is left untouched and ErrDuplicateKey is returned, so the caller can fall
// back to the update path without aborting the transaction.
func (d *tableDef[T]) Insert(ctx context.Context, q database.Querier, tenant string, rec *T) error {
	placeholders := make([]string, len(d.columns)+1)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (tenant_id, %s) VALUES (%s) ON CONFLICT %s DO NOTHING",
		d.name, strings.Join(d.columns, ", "), strings.Join(placeholders, ", "), d.conflictTarget())

	args := append([]any{tenant}, d.values(rec)...)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", d.name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("insert %s: %w", d.name, database.ErrDuplicateKey)
	}

	return nil
}

// Update overwrites every mutable column of an existing row.
func (d *tableDef[T]) Update(ctx context.Context, q database.Querier, tenant string, rec *T) error {
	values := d.values(rec)

	args := []any{tenant}
	var key any
	var sets []string
	for i, col := range d.columns {
		if col == "id" {
			key = values[i]
			continue
		}
		if d.immutable[col] {
			continue
		}
		args = append(args, values[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	where := "tenant_id = $1"
	if !d.singleton {
		args = append(args, key)
		where += fmt.Sprintf(" AND id = $%d", len(args))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", d.name, strings.Join(sets, ", "), where)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", d.name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrNotFound
	}

	return nil
}

// ListSince returns every row modified strictly after since, or all rows when
// since is nil. Tombstones are included so deletions reach the client.
func (d *tableDef[T]) ListSince(ctx context.Context, q database.Querier, tenant string, since *time.Time) ([]T, error) {
	query := d.selectSQL()
	args := []any{tenant}
	if since != nil {
		query += " AND updated_at > $2"
		args = append(args, *since)
	}
	if !d.singleton {
		query += " ORDER BY id"
	}

	return d.query(ctx, q, query, args...)
}

func (d *tableDef[T]) ListPage(ctx context.Context, q database.Querier, tenant string, page, pageSize int) (*OffsetPage, error) {
	filter := " WHERE tenant_id = $1"
	if d.tombstone {
		filter += " AND NOT is_deleted"
	}

	var total int64
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.name+filter, tenant).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", d.name, err)
	}

	offset := (page - 1) * pageSize
	query := "SELECT " + strings.Join(d.columns, ", ") + " FROM " + d.name + filter + " ORDER BY id LIMIT $2 OFFSET $3"

	items, err := d.query(ctx, q, query, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(items, total, page, pageSize), nil
}

func (d *tableDef[T]) query(ctx context.Context, q database.Querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.name, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := d.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.name, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

var metaColumns = []string{"created_at", "updated_at", "is_deleted"}

func withMeta(cols ...string) []string {
	return append(append([]string{"id"}, cols...), metaColumns...)
}

var createdAtImmutable = map[string]bool{"created_at": true}
