package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/safar/stockmaster-sync/internal/auth"
	"github.com/safar/stockmaster-sync/internal/config"
	"github.com/safar/stockmaster-sync/internal/logger"
	"github.com/safar/stockmaster-sync/internal/metrics"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/store"
	"github.com/safar/stockmaster-sync/internal/syncer"
	"github.com/safar/stockmaster-sync/internal/validation"
)

// Syncer runs one sync for an authenticated tenant.
type Syncer interface {
	Sync(ctx context.Context, tenant string, req *models.SyncRequest) (*syncer.Result, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	DB      *sql.DB
	Pinger  Pinger
	Syncer  Syncer
	Tokens  *auth.Tokens
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Server  config.ServerConfig
}

type Server struct {
	echo     *echo.Echo
	db       *sql.DB
	pinger   Pinger
	syncer   Syncer
	settings store.Table[models.Settings]
}

func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo:     e,
		db:       deps.DB,
		pinger:   deps.Pinger,
		syncer:   deps.Syncer,
		settings: store.NewSettingsTable(),
	}
	if s.pinger == nil && deps.DB != nil {
		s.pinger = deps.DB
	}

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.Middleware(log))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}
	e.Use(middleware.Recover())
	if deps.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(deps.Server.BodyLimit))
	}

	e.GET("/health", s.handleHealth)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	api := e.Group("/api", auth.Middleware(deps.Tokens))
	api.POST("/sync", s.handleSync)

	if deps.DB != nil {
		s.registerReads(api)
	}

	return s
}

func (s *Server) registerReads(g *echo.Group) {
	products := store.NewProductTable()
	categories := store.NewCategoryTable()
	suppliers := store.NewSupplierTable()
	sales := store.NewSaleTable()
	purchases := store.NewPurchaseTable()
	adjustments := store.NewAdjustmentTable()
	activities := store.NewActivityTable()

	g.GET("/products", listHandler(s.db, products))
	g.GET("/products/:id", getHandler[models.Product](s.db, products))
	g.GET("/categories", listHandler(s.db, categories))
	g.GET("/categories/:id", getHandler[models.Category](s.db, categories))
	g.GET("/suppliers", listHandler(s.db, suppliers))
	g.GET("/suppliers/:id", getHandler[models.Supplier](s.db, suppliers))
	g.GET("/sales", listHandler(s.db, sales))
	g.GET("/sales/:id", getHandler[models.Sale](s.db, sales))
	g.GET("/purchases", listHandler(s.db, purchases))
	g.GET("/purchases/:id", getHandler[models.Purchase](s.db, purchases))
	g.GET("/adjustments", listHandler(s.db, adjustments))
	g.GET("/adjustments/:id", getHandler[models.Adjustment](s.db, adjustments))
	g.GET("/activities", s.handleActivities)
	g.GET("/activities/:id", getHandler[models.Activity](s.db, activities))
	g.GET("/settings", s.handleSettings)
	g.GET("/dashboard/stats", s.handleDashboard)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}
