package store

import "github.com/safar/stockmaster-sync/internal/models"

func NewPurchaseTable() Lister[models.Purchase] {
	return &tableDef[models.Purchase]{
		name:      "purchases",
		tombstone: true,
		columns: withMeta("date", "reference_number", "supplier_id", "items", "payment_method",
			"notes"),
		immutable: createdAtImmutable,
		values: func(p *models.Purchase) []any {
			return []any{p.ID, p.Date, p.ReferenceNumber, p.SupplierID, p.Items, p.PaymentMethod, p.Notes,
				p.CreatedAt, p.UpdatedAt, p.IsDeleted}
		},
		scan: func(row scanner) (models.Purchase, error) {
			var p models.Purchase
			err := row.Scan(
				&p.ID,
				&p.Date,
				&p.ReferenceNumber,
				&p.SupplierID,
				&p.Items,
				&p.PaymentMethod,
				&p.Notes,
				&p.CreatedAt,
				&p.UpdatedAt,
				&p.IsDeleted,
			)
			return p, err
		},
	}
}
