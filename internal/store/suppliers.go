package store

import (
	"github.com/lib/pq"
	"github.com/safar/stockmaster-sync/internal/models"
)

// Suppliers keep their product list as a BIGINT[] column rather than a join table.
func NewSupplierTable() Lister[models.Supplier] {
	return &tableDef[models.Supplier]{
		name:      "suppliers",
		tombstone: true,
		columns: withMeta("name", "contact_person", "phone", "email", "address", "payment_terms",
			"product_ids"),
		immutable: createdAtImmutable,
		values: func(s *models.Supplier) []any {
			productIDs := s.ProductIDs
			if productIDs == nil {
				productIDs = []int64{}
			}
			return []any{s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.PaymentTerms,
				pq.Array(productIDs), s.CreatedAt, s.UpdatedAt, s.IsDeleted}
		},
		scan: func(row scanner) (models.Supplier, error) {
			var s models.Supplier
			err := row.Scan(
				&s.ID,
				&s.Name,
				&s.ContactPerson,
				&s.Phone,
				&s.Email,
				&s.Address,
				&s.PaymentTerms,
				pq.Array(&s.ProductIDs),
				&s.CreatedAt,
				&s.UpdatedAt,
				&s.IsDeleted,
			)
			return s, err
		},
	}
}
