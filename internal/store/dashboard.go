package store

import (
	"context"
	"fmt"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/models"
)

const dashboardListLimit = 5

// GetDashboardStats computes the inventory overview for a tenant. Tombstoned
// rows are ignored. Run it inside a snapshot transaction so the counts agree.
func GetDashboardStats(ctx context.Context, q database.Querier, tenant string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE stock > 0 AND stock <= reorder_level),
		       COUNT(*) FILTER (WHERE stock = 0),
		       COALESCE(SUM(stock * purchase_price), 0)
		FROM products
		WHERE tenant_id = $1 AND NOT is_deleted`,
		tenant).Scan(
		&stats.TotalProducts,
		&stats.LowStockItems,
		&stats.OutOfStockItems,
		&stats.InventoryValue,
	)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	stats.RecentActivities, err = recentActivities(ctx, q, tenant)
	if err != nil {
		return nil, err
	}

	stats.LowStockProducts, err = lowStockProducts(ctx, q, tenant)
	if err != nil {
		return nil, err
	}

	stats.RecentSales, err = recentSales(ctx, q, tenant)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func recentActivities(ctx context.Context, q database.Querier, tenant string) ([]models.Activity, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, date, activity, user_name, details, created_at, updated_at, is_deleted
		FROM activities
		WHERE tenant_id = $1 AND NOT is_deleted
		ORDER BY date DESC, id DESC
		LIMIT $2`,
		tenant, dashboardListLimit)
	if err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	defer rows.Close()

	activities := make([]models.Activity, 0, dashboardListLimit)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return activities, nil
}

func lowStockProducts(ctx context.Context, q database.Querier, tenant string) ([]models.LowStockProduct, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.name, p.category_id, p.description, p.purchase_price, p.selling_price,
		       p.stock, p.reorder_level, p.unit, p.barcode, p.created_at, p.updated_at, p.is_deleted,
		       COALESCE(c.name, '')
		FROM products p
		LEFT JOIN categories c
		       ON c.tenant_id = p.tenant_id AND c.id = p.category_id AND NOT c.is_deleted
		WHERE p.tenant_id = $1 AND NOT p.is_deleted AND p.stock <= p.reorder_level
		ORDER BY p.stock ASC, p.id
		LIMIT $2`,
		tenant, dashboardListLimit)
	if err != nil {
		return nil, fmt.Errorf("low stock products: %w", err)
	}
	defer rows.Close()

	products := make([]models.LowStockProduct, 0, dashboardListLimit)
	for rows.Next() {
		var p models.LowStockProduct
		err := rows.Scan(
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
			&p.CategoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func recentSales(ctx context.Context, q database.Querier, tenant string) ([]models.SaleSummary, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, date, invoice_number, customer, items, payment_method, notes,
		       created_at, updated_at, is_deleted
		FROM sales
		WHERE tenant_id = $1 AND NOT is_deleted
		ORDER BY date DESC, id DESC
		LIMIT $2`,
		tenant, dashboardListLimit)
	if err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}
	defer rows.Close()

	sales := make([]models.SaleSummary, 0, dashboardListLimit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, models.SaleSummary{Sale: sale, TotalAmount: sale.Items.Total()})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sales, nil
}
