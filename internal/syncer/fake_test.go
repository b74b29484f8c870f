package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/store"
)

// fakeTable is an in-memory store.Table keyed by tenant and id.
type fakeTable[T any, P record[T]] struct {
	mu   sync.Mutex
	name string
	rows map[string]map[int64]T

	failOn    int64 // Insert/Update of this id fails
	raceOn    int64 // Insert of this id loses a race to raceWith
	raceWith  *T
	updates   int
	insertErr error
}

func newFakeTable[T any, P record[T]](name string) *fakeTable[T, P] {
	return &fakeTable[T, P]{name: name, rows: map[string]map[int64]T{}}
}

func (f *fakeTable[T, P]) Name() string { return f.name }

func (f *fakeTable[T, P]) Get(_ context.Context, _ database.Querier, tenant string, id int64) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[tenant][id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeTable[T, P]) Insert(_ context.Context, _ database.Querier, tenant string, rec *T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := P(rec).Key()
	if f.failOn != 0 && id == f.failOn {
		return f.insertErr
	}
	if f.rows[tenant] == nil {
		f.rows[tenant] = map[int64]T{}
	}
	if f.raceWith != nil && id == f.raceOn {
		f.rows[tenant][id] = *f.raceWith
		f.raceWith = nil
	}
	if _, ok := f.rows[tenant][id]; ok {
		return fmt.Errorf("insert %s: %w", f.name, database.ErrDuplicateKey)
	}
	f.rows[tenant][id] = *rec
	return nil
}

func (f *fakeTable[T, P]) Update(_ context.Context, _ database.Querier, tenant string, rec *T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := P(rec).Key()
	if _, ok := f.rows[tenant][id]; !ok {
		return database.ErrNotFound
	}
	f.rows[tenant][id] = *rec
	f.updates++
	return nil
}

func (f *fakeTable[T, P]) ListSince(_ context.Context, _ database.Querier, tenant string, since *time.Time) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]T, 0)
	for _, rec := range f.rows[tenant] {
		if since == nil || P(&rec).Modified().After(*since) {
			items = append(items, rec)
		}
	}
	sort.Slice(items, func(i, j int) bool { return P(&items[i]).Key() < P(&items[j]).Key() })
	return items, nil
}

func (f *fakeTable[T, P]) put(tenant string, rec T) {
	if f.rows[tenant] == nil {
		f.rows[tenant] = map[int64]T{}
	}
	f.rows[tenant][P(&rec).Key()] = rec
}

func (f *fakeTable[T, P]) snapshot() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := make(map[string]map[int64]T, len(f.rows))
	for tenant, rows := range f.rows {
		saved[tenant] = make(map[int64]T, len(rows))
		for id, rec := range rows {
			saved[tenant][id] = rec
		}
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.rows = saved
	}
}

// fakeClock hands out strictly increasing server stamps.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	err  error
	seen []string
}

func (c *fakeClock) LockTenant(_ context.Context, _ database.Querier, tenant string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return time.Time{}, c.err
	}
	c.seen = append(c.seen, tenant)
	c.now = c.now.Add(time.Second)
	return c.now, nil
}

type fakeDB struct {
	products    *fakeTable[models.Product, *models.Product]
	categories  *fakeTable[models.Category, *models.Category]
	suppliers   *fakeTable[models.Supplier, *models.Supplier]
	sales       *fakeTable[models.Sale, *models.Sale]
	purchases   *fakeTable[models.Purchase, *models.Purchase]
	adjustments *fakeTable[models.Adjustment, *models.Adjustment]
	activities  *fakeTable[models.Activity, *models.Activity]
	settings    *fakeTable[models.Settings, *models.Settings]
	clock       *fakeClock
	txMu        sync.Mutex
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		products:    newFakeTable[models.Product]("products"),
		categories:  newFakeTable[models.Category]("categories"),
		suppliers:   newFakeTable[models.Supplier]("suppliers"),
		sales:       newFakeTable[models.Sale]("sales"),
		purchases:   newFakeTable[models.Purchase]("purchases"),
		adjustments: newFakeTable[models.Adjustment]("adjustments"),
		activities:  newFakeTable[models.Activity]("activities"),
		settings:    newFakeTable[models.Settings]("settings"),
		clock:       &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func (db *fakeDB) tables() store.Tables {
	return store.Tables{
		Products:    db.products,
		Categories:  db.categories,
		Suppliers:   db.suppliers,
		Sales:       db.sales,
		Purchases:   db.purchases,
		Adjustments: db.adjustments,
		Activities:  db.activities,
		Settings:    db.settings,
		Locker:      db.clock,
	}
}

// runTx serialises transactions and restores every table when fn fails.
func (db *fakeDB) runTx(ctx context.Context, fn func(q database.Querier) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	restores := []func(){
		db.products.snapshot(),
		db.categories.snapshot(),
		db.suppliers.snapshot(),
		db.sales.snapshot(),
		db.purchases.snapshot(),
		db.adjustments.snapshot(),
		db.activities.snapshot(),
		db.settings.snapshot(),
	}
	err := fn(nil)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

func (db *fakeDB) service(opts ...Option) *Service {
	return newService(db.tables(), db.runTx, opts...)
}

var errBoom = errors.New("boom")
