package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/jiseti/reporting-api/internal/config"
	"github.com/jiseti/reporting-api/internal/handler"
	"github.com/jiseti/reporting-api/internal/middleware"
	"github.com/jiseti/reporting-api/internal/model"
)

// Deps bundles everything the routes need.  Rdb may be nil, in which
// case the cache and rate limit middleware become pass-throughs.
type Deps struct {
	Cfg     config.Config
	Auth    *handler.AuthHandler
	Records *handler.RecordHandler
	Users   *handler.UserHandler
	Rdb     *redis.Client
}

// Register wires up the whole HTTP surface.
//
// Public: the root banner, the health check and the auth endpoints.
// Everything else sits behind JWT authentication; the per-operation
// rules (ownership, draft status, admin transitions) are enforced by
// the policy package inside the handlers, mirroring where the checks
// conceptually belong in the lifecycle.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Rdb))

	e.GET("/", handler.Home)
	e.GET("/healthz", handler.Health)

	e.POST("/signup", d.Auth.Signup)
	e.POST("/login", d.Auth.Login)
	e.POST("/refresh", d.Auth.Refresh)
	e.POST("/logout", d.Auth.Logout)

	auth := e.Group("")
	auth.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	auth.Use(middleware.RequireRole(model.RoleCitizen, model.RoleAdmin))

	auth.GET("/users", d.Users.List)

	auth.POST("/records", d.Records.Create)
	// The listing is the one hot read path; cache it briefly.
	auth.GET("/records", d.Records.List, middleware.NewRedisCache(config.LoadCacheConfig(), d.Rdb))
	auth.PATCH("/records/:id", d.Records.Update)
	auth.DELETE("/records/:id", d.Records.Delete)
	auth.PATCH("/records/:id/status", d.Records.SetStatus)
	auth.POST("/records/:id/media", d.Records.AddMedia)
}
