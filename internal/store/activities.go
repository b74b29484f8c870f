package store

import (
	"context"
	"fmt"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/models"
)

func NewActivityTable() Lister[models.Activity] {
	return &tableDef[models.Activity]{
		name:      "activities",
		tombstone: true,
		columns:   activityColumns,
		immutable: createdAtImmutable,
		values: func(a *models.Activity) []any {
			return []any{a.ID, a.Date, a.Activity, a.User, a.Details, a.CreatedAt, a.UpdatedAt, a.IsDeleted}
		},
		scan: scanActivity,
	}
}

var activityColumns = withMeta("date", "activity", "user_name", "details")

func scanActivity(row scanner) (models.Activity, error) {
	var a models.Activity
	err := row.Scan(&a.ID, &a.Date, &a.Activity, &a.User, &a.Details, &a.CreatedAt, &a.UpdatedAt, &a.IsDeleted)
	return a, err
}

// ListActivitiesCursor pages through the activity feed newest first.
func ListActivitiesCursor(ctx context.Context, q database.Querier, tenant string, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, date, activity, user_name, details, created_at, updated_at, is_deleted
		FROM activities
		WHERE tenant_id = $1
		  AND NOT is_deleted
		  AND (date, id) < ($2, $3)
		ORDER BY date DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, tenant, cursorData.Date, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]models.Activity, 0, limit)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(activities) > limit
	if hasMore {
		activities = activities[:limit]
	}

	var nextCursor string
	if hasMore && len(activities) > 0 {
		last := activities[len(activities)-1]
		nextCursor = EncodeCursor(FeedCursor{
			Date: last.Date,
			ID:   last.ID,
		})
	}

	return &CursorPage{
		Items:      activities,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
