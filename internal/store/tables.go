package store

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/models"
)

// TenantLocker serialises writers of one tenant inside a transaction.
type TenantLocker interface {
	// LockTenant blocks until the calling transaction owns the tenant and
	// returns the server time to stamp this transaction's writes with.
	LockTenant(ctx context.Context, q database.Querier, tenant string) (time.Time, error)
}

// Tables bundles the Entity Store for all synchronised kinds.
type Tables struct {
	Products    Table[models.Product]
	Categories  Table[models.Category]
	Suppliers   Table[models.Supplier]
	Sales       Table[models.Sale]
	Purchases   Table[models.Purchase]
	Adjustments Table[models.Adjustment]
	Activities  Table[models.Activity]
	Settings    Table[models.Settings]
	Locker      TenantLocker
}

func NewTables() Tables {
	return Tables{
		Products:    NewProductTable(),
		Categories:  NewCategoryTable(),
		Suppliers:   NewSupplierTable(),
		Sales:       NewSaleTable(),
		Purchases:   NewPurchaseTable(),
		Adjustments: NewAdjustmentTable(),
		Activities:  NewActivityTable(),
		Settings:    NewSettingsTable(),
		Locker:      AdvisoryLocker{},
	}
}

// AdvisoryLocker uses a transaction-scoped PostgreSQL advisory lock keyed by
// the tenant. The lock is released on commit or rollback.
type AdvisoryLocker struct{}

func (AdvisoryLocker) LockTenant(ctx context.Context, q database.Querier, tenant string) (time.Time, error) {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, tenant); err != nil {
		return time.Time{}, fmt.Errorf("lock tenant: %w", err)
	}

	// Read the clock only once the lock is held: every earlier writer of this
	// tenant has then committed with a smaller stamp.
	var now time.Time
	if err := q.QueryRowContext(ctx, `SELECT clock_timestamp()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("read server time: %w", err)
	}

	return now, nil
}
