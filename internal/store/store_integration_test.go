//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/database/dbtest"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/store"
)

func stamp() models.Meta {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Meta{CreatedAt: now, UpdatedAt: now}
}

func TestProductTable(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	products := store.NewProductTable()

	p := models.Product{
		ID: 1, Name: "Sugar 1kg", PurchasePrice: decimal.RequireFromString("4200.50"),
		SellingPrice: decimal.NewFromInt(5000), Stock: 2, ReorderLevel: 5, Meta: stamp(),
	}
	if err := products.Insert(ctx, db, "shop-1", &p); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := products.Insert(ctx, db, "shop-1", &p)
	if !errors.Is(err, database.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, err := products.Get(ctx, db, "shop-1", 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.PurchasePrice.Equal(p.PurchasePrice) {
		t.Errorf("Expected price %s, got %s", p.PurchasePrice, got.PurchasePrice)
	}

	if _, err := products.Get(ctx, db, "shop-2", 1); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other tenant, got %v", err)
	}

	p.Stock = 9
	p.IsDeleted = true
	p.UpdatedAt = p.UpdatedAt.Add(time.Second)
	if err := products.Update(ctx, db, "shop-1", &p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	since := p.UpdatedAt.Add(-time.Millisecond)
	changed, err := products.ListSince(ctx, db, "shop-1", &since)
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(changed) != 1 || !changed[0].IsDeleted || changed[0].Stock != 9 {
		t.Errorf("Expected tombstone in change-set, got %+v", changed)
	}

	page, err := products.ListPage(ctx, db, "shop-1", 1, 20)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("Expected tombstones to be hidden from pages, got total %d", page.Total)
	}
}

func TestSupplierAndSaleColumns(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()

	suppliers := store.NewSupplierTable()
	s := models.Supplier{ID: 1, Name: "Mukwano", Meta: stamp()}
	if err := suppliers.Insert(ctx, db, "shop-1", &s); err != nil {
		t.Fatalf("Insert supplier without products: %v", err)
	}
	s.ProductIDs = []int64{3, 1}
	if err := suppliers.Update(ctx, db, "shop-1", &s); err != nil {
		t.Fatalf("Update supplier: %v", err)
	}
	gotSupplier, err := suppliers.Get(ctx, db, "shop-1", 1)
	if err != nil {
		t.Fatalf("Get supplier: %v", err)
	}
	if len(gotSupplier.ProductIDs) != 2 || gotSupplier.ProductIDs[0] != 3 {
		t.Errorf("Expected product ids [3 1], got %v", gotSupplier.ProductIDs)
	}

	sales := store.NewSaleTable()
	sale := models.Sale{
		ID: 10, Date: time.Now(), InvoiceNumber: "INV-10", PaymentMethod: "cash",
		Items: models.LineItems{{ProductID: 1, ProductName: "Sugar", Quantity: 3, Price: decimal.NewFromInt(5000)}},
		Meta:  stamp(),
	}
	if err := sales.Insert(ctx, db, "shop-1", &sale); err != nil {
		t.Fatalf("Insert sale: %v", err)
	}
	gotSale, err := sales.Get(ctx, db, "shop-1", 10)
	if err != nil {
		t.Fatalf("Get sale: %v", err)
	}
	if !gotSale.Items.Total().Equal(decimal.NewFromInt(15000)) {
		t.Errorf("Expected total 15000, got %s", gotSale.Items.Total())
	}
}

func TestSettingsSingleton(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	settings := store.NewSettingsTable()

	if _, err := settings.Get(ctx, db, "shop-1", 0); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	s := models.DefaultSettings()
	s.Touch(time.Now())
	if err := settings.Insert(ctx, db, "shop-1", &s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	s.Currency = "KES"
	if err := settings.Update(ctx, db, "shop-1", &s); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := settings.Get(ctx, db, "shop-1", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Currency != "KES" || !got.TaxRate.Equal(decimal.NewFromInt(18)) {
		t.Errorf("Unexpected settings %+v", got)
	}
}

func TestActivityFeedCursor(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	activities := store.NewActivityTable()

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		a := models.Activity{ID: i, Date: base.Add(time.Duration(i) * time.Hour), Activity: "Sale", User: "admin", Meta: stamp()}
		if err := activities.Insert(ctx, db, "shop-1", &a); err != nil {
			t.Fatalf("Insert activity %d: %v", i, err)
		}
	}

	first, err := store.ListActivitiesCursor(ctx, db, "shop-1", "", 3)
	if err != nil {
		t.Fatalf("First page: %v", err)
	}
	items := first.Items.([]models.Activity)
	if len(items) != 3 || items[0].ID != 5 || !first.HasMore {
		t.Fatalf("Unexpected first page: %+v", first)
	}

	second, err := store.ListActivitiesCursor(ctx, db, "shop-1", first.NextCursor, 3)
	if err != nil {
		t.Fatalf("Second page: %v", err)
	}
	items = second.Items.([]models.Activity)
	if len(items) != 2 || items[1].ID != 1 || second.HasMore {
		t.Errorf("Unexpected second page: %+v", second)
	}
}

func TestDashboardStats(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	products := store.NewProductTable()

	rows := []models.Product{
		{ID: 1, Name: "Sugar", PurchasePrice: decimal.NewFromInt(100), Stock: 10, ReorderLevel: 2, Meta: stamp()},
		{ID: 2, Name: "Salt", PurchasePrice: decimal.NewFromInt(50), Stock: 1, ReorderLevel: 2, Meta: stamp()},
		{ID: 3, Name: "Rice", PurchasePrice: decimal.NewFromInt(80), Stock: 0, ReorderLevel: 2, Meta: stamp()},
	}
	gone := models.Product{ID: 4, Name: "Gone", PurchasePrice: decimal.NewFromInt(999), Stock: 50, Meta: stamp()}
	gone.IsDeleted = true
	rows = append(rows, gone)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for i := range rows {
			if err := products.Insert(ctx, tx, "shop-1", &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Seed products: %v", err)
	}

	stats, err := store.GetDashboardStats(ctx, db, "shop-1")
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}

	if stats.TotalProducts != 3 {
		t.Errorf("Expected 3 products, got %d", stats.TotalProducts)
	}
	if stats.LowStockItems != 1 || stats.OutOfStockItems != 1 {
		t.Errorf("Expected 1 low and 1 out of stock, got %d and %d", stats.LowStockItems, stats.OutOfStockItems)
	}
	if !stats.InventoryValue.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("Expected inventory value 1050, got %s", stats.InventoryValue)
	}
	if len(stats.LowStockProducts) != 2 || stats.LowStockProducts[0].ID != 3 {
		t.Errorf("Unexpected low stock products %+v", stats.LowStockProducts)
	}
}

func TestAdvisoryLockerStampsIncrease(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	locker := store.AdvisoryLocker{}

	var stamps []time.Time
	for i := 0; i < 2; i++ {
		err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
			now, err := locker.LockTenant(ctx, tx, "shop-1")
			stamps = append(stamps, now)
			return err
		})
		if err != nil {
			t.Fatalf("LockTenant: %v", err)
		}
	}

	if !stamps[1].After(stamps[0]) {
		t.Errorf("Expected increasing stamps, got %v", stamps)
	}
}
