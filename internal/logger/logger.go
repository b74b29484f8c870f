package logger

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/safar/stockmaster-sync/internal/config"
)

const contextKey = "logger"

// New builds a JSON logger for production and a console logger otherwise.
// An unknown level falls back to info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" || cfg.Environment == "prod" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// Middleware attaches a request-scoped logger and logs every request once it
// has been handled.
func Middleware(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			reqLog := log.With(zap.String("request_id", requestID))
			c.Set(contextKey, reqLog)

			err := next(c)
			if err != nil && !c.Response().Committed {
				// Let echo render the error so the logged status is final.
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			switch {
			case err != nil && c.Response().Status >= 500:
				reqLog.Error("request failed", append(fields, zap.Error(err))...)
			case err != nil:
				reqLog.Warn("request rejected", append(fields, zap.Error(err))...)
			default:
				reqLog.Info("request completed", fields...)
			}

			return nil
		}
	}
}

// FromContext returns the request logger, or a no-op logger outside a request.
func FromContext(c echo.Context) *zap.Logger {
	if log, ok := c.Get(contextKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// With stores log on c, replacing any request logger already there.
func With(c echo.Context, log *zap.Logger) {
	c.Set(contextKey, log)
}
