package models

import "github.com/shopspring/decimal"

type DashboardStats struct {
	TotalProducts    int64             `json:"total_products"`
	LowStockItems    int64             `json:"low_stock_items"`
	OutOfStockItems  int64             `json:"out_of_stock_items"`
	InventoryValue   decimal.Decimal   `json:"inventory_value"`
	RecentActivities []Activity        `json:"recent_activities"`
	LowStockProducts []LowStockProduct `json:"low_stock_products"`
	RecentSales      []SaleSummary     `json:"recent_sales"`
}

type LowStockProduct struct {
	Product
	CategoryName string `json:"category_name"`
}

type SaleSummary struct {
	Sale
	TotalAmount decimal.Decimal `json:"total_amount"`
}
