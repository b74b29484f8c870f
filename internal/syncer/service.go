package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/store"
)

// ErrInvalidTenant is returned when a sync is attempted without a tenant.
var ErrInvalidTenant = errors.New("tenant id is required")

// Recorder receives per-sync measurements. The metrics package implements it.
type Recorder interface {
	ObserveMerge(kind, outcome string, n int)
	ObserveSync(result string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMerge(string, string, int)  {}
func (nopRecorder) ObserveSync(string, time.Duration) {}

// txRunner runs fn inside one transaction.
type txRunner func(ctx context.Context, fn func(q database.Querier) error) error

// Result is a committed sync: the change-set for the client plus what
// happened to every uploaded record.
type Result struct {
	Response *models.SyncResponse
	Stats    map[string]Stats
}

type Service struct {
	tables   store.Tables
	log      *zap.Logger
	recorder Recorder
	timeout  time.Duration
	runTx    txRunner
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTimeout bounds a whole sync transaction. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService returns a Service backed by PostgreSQL.
func NewService(db *sql.DB, tables store.Tables, opts ...Option) *Service {
	return newService(tables, func(ctx context.Context, fn func(q database.Querier) error) error {
		// Not retried: the tenant lock already serialises writers, and a
		// failed sync is safe for the client to resend as a whole.
		return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
			return fn(tx)
		})
	}, opts...)
}

func newService(tables store.Tables, runTx txRunner, opts ...Option) *Service {
	s := &Service{
		tables:   tables,
		log:      zap.NewNop(),
		recorder: nopRecorder{},
		runTx:    runTx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync applies req for tenant and returns everything the client has not yet
// seen. Either every upload is applied and the change-set returned, or nothing
// is persisted and an error is returned.
func (s *Service) Sync(ctx context.Context, tenant string, req *models.SyncRequest) (*Result, error) {
	if tenant == "" {
		return nil, ErrInvalidTenant
	}
	if req == nil {
		req = &models.SyncRequest{}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	var result *Result
	err := s.runTx(ctx, func(q database.Querier) error {
		var err error
		result, err = s.sync(ctx, q, tenant, req)
		return err
	})
	elapsed := time.Since(start)

	if err != nil {
		s.recorder.ObserveSync("error", elapsed)
		s.log.Error("sync failed",
			zap.String("tenant", tenant),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, fmt.Errorf("sync: %w", err)
	}

	s.recorder.ObserveSync("ok", elapsed)
	fields := []zap.Field{
		zap.String("tenant", tenant),
		zap.Timep("since", req.LastSyncTime),
		zap.Time("watermark", result.Response.ServerWatermark),
		zap.Duration("elapsed", elapsed),
	}
	for name, st := range result.Stats {
		s.recorder.ObserveMerge(name, Inserted.String(), st.Inserted)
		s.recorder.ObserveMerge(name, Updated.String(), st.Updated)
		s.recorder.ObserveMerge(name, Skipped.String(), st.Skipped)
		if st != (Stats{}) {
			fields = append(fields, zap.Any(name, st))
		}
	}
	s.log.Info("sync committed", fields...)

	return result, nil
}

func (s *Service) sync(ctx context.Context, q database.Querier, tenant string, req *models.SyncRequest) (*Result, error) {
	now, err := s.tables.Locker.LockTenant(ctx, q, tenant)
	if err != nil {
		return nil, err
	}
	now = now.Truncate(markerResolution)

	var (
		products    = kind[models.Product, *models.Product]{"products", s.tables.Products}
		categories  = kind[models.Category, *models.Category]{"categories", s.tables.Categories}
		suppliers   = kind[models.Supplier, *models.Supplier]{"suppliers", s.tables.Suppliers}
		sales       = kind[models.Sale, *models.Sale]{"sales", s.tables.Sales}
		purchases   = kind[models.Purchase, *models.Purchase]{"purchases", s.tables.Purchases}
		adjustments = kind[models.Adjustment, *models.Adjustment]{"adjustments", s.tables.Adjustments}
		activities  = kind[models.Activity, *models.Activity]{"activities", s.tables.Activities}
		settings    = kind[models.Settings, *models.Settings]{"settings", s.tables.Settings}
	)

	steps := []struct {
		name string
		fn   func() (Stats, error)
	}{
		{products.name, func() (Stats, error) { return mergeAll(ctx, q, products, tenant, req.Products, now) }},
		{categories.name, func() (Stats, error) { return mergeAll(ctx, q, categories, tenant, req.Categories, now) }},
		{suppliers.name, func() (Stats, error) { return mergeAll(ctx, q, suppliers, tenant, req.Suppliers, now) }},
		{sales.name, func() (Stats, error) { return mergeAll(ctx, q, sales, tenant, req.Sales, now) }},
		{purchases.name, func() (Stats, error) { return mergeAll(ctx, q, purchases, tenant, req.Purchases, now) }},
		{adjustments.name, func() (Stats, error) { return mergeAll(ctx, q, adjustments, tenant, req.Adjustments, now) }},
		{activities.name, func() (Stats, error) { return mergeAll(ctx, q, activities, tenant, req.Activities, now) }},
		{settings.name, func() (Stats, error) {
			if req.Settings == nil {
				return Stats{}, nil
			}
			return mergeAll(ctx, q, settings, tenant, []models.Settings{*req.Settings}, now)
		}},
	}
	stats := make(map[string]Stats, len(steps))
	for _, step := range steps {
		st, err := step.fn()
		if err != nil {
			return nil, err
		}
		stats[step.name] = st
	}

	resp := &models.SyncResponse{ServerWatermark: now}
	since := req.LastSyncTime

	if resp.Products, err = collect(ctx, q, products, tenant, since); err != nil {
		return nil, err
	}
	if resp.Categories, err = collect(ctx, q, categories, tenant, since); err != nil {
		return nil, err
	}
	if resp.Suppliers, err = collect(ctx, q, suppliers, tenant, since); err != nil {
		return nil, err
	}
	if resp.Sales, err = collect(ctx, q, sales, tenant, since); err != nil {
		return nil, err
	}
	if resp.Purchases, err = collect(ctx, q, purchases, tenant, since); err != nil {
		return nil, err
	}
	if resp.Adjustments, err = collect(ctx, q, adjustments, tenant, since); err != nil {
		return nil, err
	}
	if resp.Activities, err = collect(ctx, q, activities, tenant, since); err != nil {
		return nil, err
	}

	changed, err := collect(ctx, q, settings, tenant, since)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		resp.Settings = &changed[0]
	}

	return &Result{Response: resp, Stats: stats}, nil
}
