package store

import "github.com/safar/stockmaster-sync/internal/models"

func NewCategoryTable() Lister[models.Category] {
	return &tableDef[models.Category]{
		name:      "categories",
		tombstone: true,
		columns:   withMeta("name", "description"),
		immutable: createdAtImmutable,
		values: func(c *models.Category) []any {
			return []any{c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt, c.IsDeleted}
		},
		scan: func(row scanner) (models.Category, error) {
			var c models.Category
			err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted)
			return c, err
		},
	}
}
