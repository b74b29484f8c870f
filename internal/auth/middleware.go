package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/safar/stockmaster-sync/internal/logger"
)

const tenantKey = "tenant_id"

// Middleware rejects requests without a valid bearer token and stores the
// caller's tenant on the context.
func Middleware(tokens *Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				log.Warn("missing bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				log.Warn("invalid bearer token", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}

			c.Set(tenantKey, claims.TenantID)
			logger.With(c, log.With(zap.String("tenant", claims.TenantID)))

			return next(c)
		}
	}
}

// Tenant returns the tenant resolved by Middleware, or "" if there is none.
func Tenant(c echo.Context) string {
	tenant, _ := c.Get(tenantKey).(string)
	return tenant
}
