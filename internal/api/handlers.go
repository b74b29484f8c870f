package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/safar/stockmaster-sync/internal/auth"
	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/logger"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleHealth(c echo.Context) error {
	if s.pinger != nil {
		if err := s.pinger.PingContext(c.Request().Context()); err != nil {
			logger.FromContext(c).Error("database ping failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSync(c echo.Context) error {
	var req models.SyncRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload("request body is not a valid sync payload", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.syncer.Sync(c.Request().Context(), auth.Tenant(c), &req)
	if err != nil {
		return syncFailed(err)
	}

	return c.JSON(http.StatusOK, res.Response)
}

func pageParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func listHandler[T any](db *sql.DB, table store.Lister[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, pageSize := pageParams(c)

		result, err := table.ListPage(c.Request().Context(), db, auth.Tenant(c), page, pageSize)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, result)
	}
}

// getHandler serves one record. Tombstones are reported as absent.
func getHandler[T any, P interface {
	*T
	Deleted() bool
}](db *sql.DB, table store.Table[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return invalidPayload("invalid "+table.Name()+" id", err)
		}

		rec, err := table.Get(c.Request().Context(), db, auth.Tenant(c), id)
		if err != nil {
			return err
		}
		if P(rec).Deleted() {
			return database.ErrNotFound
		}

		return c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) handleActivities(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		return invalidPayload("invalid cursor", err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	result, err := store.ListActivitiesCursor(c.Request().Context(), s.db, auth.Tenant(c), cursor, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSettings(c echo.Context) error {
	settings, err := s.settings.Get(c.Request().Context(), s.db, auth.Tenant(c), 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := auth.Tenant(c)

	var stats *models.DashboardStats
	err := database.WithRetry(ctx, s.db, database.SnapshotTxOptions(), func(tx *sql.Tx) error {
		var err error
		stats, err = store.GetDashboardStats(ctx, tx, tenant)
		return err
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
