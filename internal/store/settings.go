package store

import "github.com/safar/stockmaster-sync/internal/models"

// NewSettingsTable maps the per-tenant singleton. The id argument of Get is
// ignored and ListSince yields at most one row.
func NewSettingsTable() Table[models.Settings] {
	return &tableDef[models.Settings]{
		name:      "settings",
		singleton: true,
		columns: []string{"business_name", "currency", "tax_rate", "low_stock_threshold",
			"invoice_prefix", "purchase_prefix", "created_at", "updated_at"},
		immutable: createdAtImmutable,
		values: func(s *models.Settings) []any {
			return []any{s.BusinessName, s.Currency, s.TaxRate, s.LowStockThreshold, s.InvoicePrefix,
				s.PurchasePrefix, s.CreatedAt, s.UpdatedAt}
		},
		scan: func(row scanner) (models.Settings, error) {
			var s models.Settings
			err := row.Scan(
				&s.BusinessName,
				&s.Currency,
				&s.TaxRate,
				&s.LowStockThreshold,
				&s.InvoicePrefix,
				&s.PurchasePrefix,
				&s.CreatedAt,
				&s.UpdatedAt,
			)
			return s, err
		},
	}
}
