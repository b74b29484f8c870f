package store

import "github.com/safar/stockmaster-sync/internal/models"

var saleColumns = withMeta("date", "invoice_number", "customer", "items", "payment_method", "notes")

// Sale line items live in a JSONB column, so an update replaces the whole
// collection in the same statement as the header.
func NewSaleTable() Lister[models.Sale] {
	return &tableDef[models.Sale]{
		name:      "sales",
		tombstone: true,
		columns:   saleColumns,
		immutable: createdAtImmutable,
		values: func(s *models.Sale) []any {
			return []any{s.ID, s.Date, s.InvoiceNumber, s.Customer, s.Items, s.PaymentMethod, s.Notes,
				s.CreatedAt, s.UpdatedAt, s.IsDeleted}
		},
		scan: scanSale,
	}
}

func scanSale(row scanner) (models.Sale, error) {
	var s models.Sale
	err := row.Scan(
		&s.ID,
		&s.Date,
		&s.InvoiceNumber,
		&s.Customer,
		&s.Items,
		&s.PaymentMethod,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.IsDeleted,
	)
	return s, err
}
