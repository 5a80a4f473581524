// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"tenantauth/config"
	"tenantauth/internal/delivery/api/middleware"
	"tenantauth/internal/delivery/api/router/handler"
	"tenantauth/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	OAuthHandler   *handler.OAuthHandler
	TenantHandler  *handler.TenantHandler
	HealthHandler  *handler.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	Config         *config.Config
	Metrics        *metrics.Metrics `optional:"true"`
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	oauthHandler   *handler.OAuthHandler
	tenantHandler  *handler.TenantHandler
	healthHandler  *handler.HealthHandler
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
	metrics        *metrics.Metrics
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		oauthHandler:   params.OAuthHandler,
		tenantHandler:  params.TenantHandler,
		healthHandler:  params.HealthHandler,
		authMiddleware: params.AuthMiddleware,
		config:         params.Config,
		metrics:        params.Metrics,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", r.healthHandler.Health)

	if r.metrics != nil && r.config.Metrics != nil && r.config.Metrics.Enabled {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(r.metrics.Handler()))
	}

	// Auth routes, throttled per client IP
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.NewRateLimit(r.config.RateLimit))
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout, r.authMiddleware.OptionalUser)
		authGroup.POST("/logout-all", r.authHandler.LogoutAll, r.authMiddleware.Authenticate)
		authGroup.GET("/me", r.authHandler.Me, r.authMiddleware.Authenticate)
		authGroup.GET("/me/permissions", r.authHandler.MyPermissions, r.authMiddleware.Authenticate)
	}

	// OAuth routes
	oauthGroup := authGroup.Group("/oauth")
	{
		oauthGroup.GET("/providers", r.oauthHandler.Providers)
		oauthGroup.GET("/:provider/authorize", r.oauthHandler.Authorize)
		oauthGroup.GET("/:provider/callback", r.oauthHandler.Callback)
		oauthGroup.POST("/:provider/token", r.oauthHandler.IDToken)
	}

	// Tenant administration, always scoped to the caller's tenant
	tenantGroup := e.Group("/api/v1/tenant")
	tenantGroup.Use(r.authMiddleware.Authenticate)
	{
		tenantGroup.GET("/roles", r.tenantHandler.ListRoles,
			r.authMiddleware.RequirePermission(middleware.Permission("roles:read")))
		tenantGroup.GET("/users", r.tenantHandler.ListUsers,
			r.authMiddleware.RequirePermission(middleware.AnyPermission("users:read", "admin:read")))
		tenantGroup.GET("/users/:id", r.tenantHandler.GetUser,
			r.authMiddleware.RequirePermission(middleware.AnyPermission("users:read", "admin:read")))
		tenantGroup.PATCH("/users/:id", r.tenantHandler.UpdateUser,
			r.authMiddleware.RequirePermission(middleware.Permission("users:write")))
		tenantGroup.POST("/users/:id/activate", r.tenantHandler.ActivateUser,
			r.authMiddleware.RequirePermission(middleware.Permission("users:write")))
		tenantGroup.POST("/users/:id/deactivate", r.tenantHandler.DeactivateUser,
			r.authMiddleware.RequirePermission(middleware.Permission("users:write")))
		tenantGroup.POST("/users/:id/sessions/revoke", r.tenantHandler.RevokeUserSessions,
			r.authMiddleware.RequireSuperuser)
	}
}
