package store

import "github.com/safar/stockmaster-sync/internal/models"

func NewAdjustmentTable() Lister[models.Adjustment] {
	return &tableDef[models.Adjustment]{
		name:      "adjustments",
		tombstone: true,
		columns:   withMeta("date", "product_id", "type", "quantity", "reason", "user_name"),
		immutable: createdAtImmutable,
		values: func(a *models.Adjustment) []any {
			return []any{a.ID, a.Date, a.ProductID, a.Type, a.Quantity, a.Reason, a.User,
				a.CreatedAt, a.UpdatedAt, a.IsDeleted}
		},
		scan: func(row scanner) (models.Adjustment, error) {
			var a models.Adjustment
			err := row.Scan(
				&a.ID,
				&a.Date,
				&a.ProductID,
				&a.Type,
				&a.Quantity,
				&a.Reason,
				&a.User,
				&a.CreatedAt,
				&a.UpdatedAt,
				&a.IsDeleted,
			)
			return a, err
		},
	}
}
