package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tenantauth/internal/delivery/api/response"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// dependencyCheck pings one backing service.
type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

// HealthHandlerParams holds dependencies for HealthHandler, injected by Fx.
type HealthHandlerParams struct {
	fx.In

	DB     *gorm.DB
	Redis  *goredis.Client
	Logger *slog.Logger
}

// HealthHandler reports whether Postgres and Redis answer.
type HealthHandler struct {
	checks []dependencyCheck
	logger *slog.Logger
}

// NewHealthHandler is the constructor for HealthHandler
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		checks: []dependencyCheck{
			{name: "postgres", ping: func(ctx context.Context) error {
				sqlDB, err := params.DB.DB()
				if err != nil {
					return err
				}

				return sqlDB.PingContext(ctx)
			}},
			{name: "redis", ping: func(ctx context.Context) error {
				return params.Redis.Ping(ctx).Err()
			}},
		},
		logger: params.Logger,
	}
}

// Health handles GET /health. Any failing dependency turns the response into a 503.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.ping(ctx); err != nil {
			h.logger.Warn("Health check failed", slog.String("dependency", check.name), slog.Any("error", err))
			checks[check.name] = "unavailable"
			status = http.StatusServiceUnavailable

			continue
		}
		checks[check.name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	return response.Success(c, status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}
