package store

import "github.com/safar/stockmaster-sync/internal/models"

func NewProductTable() Lister[models.Product] {
	return &tableDef[models.Product]{
		name:      "products",
		tombstone: true,
		columns: withMeta("name", "category_id", "description", "purchase_price", "selling_price",
			"stock", "reorder_level", "unit", "barcode"),
		immutable: createdAtImmutable,
		values: func(p *models.Product) []any {
			return []any{p.ID, p.Name, p.CategoryID, p.Description, p.PurchasePrice, p.SellingPrice,
				p.Stock, p.ReorderLevel, p.Unit, p.Barcode, p.CreatedAt, p.UpdatedAt, p.IsDeleted}
		},
		scan: scanProduct,
	}
}

func scanProduct(row scanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.CategoryID,
		&p.Description,
		&p.PurchasePrice,
		&p.SellingPrice,
		&p.Stock,
		&p.ReorderLevel,
		&p.Unit,
		&p.Barcode,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.IsDeleted,
	)
	return p, err
}
