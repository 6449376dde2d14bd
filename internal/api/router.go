package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"classroom-access-backend/internal/access"
	"classroom-access-backend/internal/auth"
	"classroom-access-backend/internal/mw"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// RouterOptions configures middleware on the router.
type RouterOptions struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	// DeviceSigningKey enables bearer auth on scan routes when set.
	DeviceSigningKey string
	Issuer           string
	Health           map[string]HealthCheck
}

// deviceKey rate-limits authenticated readers individually and everyone else by address.
func deviceKey(c *gin.Context) string {
	if claims, ok := auth.DeviceFrom(c); ok {
		return "device:" + claims.DeviceID
	}
	return "ip:" + c.ClientIP()
}

// NewRouter creates and configures a new Gin router.
func NewRouter(svc *access.Service, opts RouterOptions) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	handler := NewHandler(svc)

	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.CacheTTL > 0 {
		caching = mw.Cache(cache.New(opts.CacheTTL, 2*opts.CacheTTL), opts.CacheTTL)
	}

	r.GET("/healthz", healthz(opts.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// GET /api/rooms/{room_id}
		api.GET("/rooms/:room_id", handler.GetRoom)

		// GET /api/rooms/{room_id}/schedules
		api.GET("/rooms/:room_id/schedules", caching, handler.GetRoomSchedules)
	}

	scans := api.Group("/scans")
	maintenance := api.Group("/maintenance")
	if opts.DeviceSigningKey != "" {
		scans.Use(auth.DeviceAuth(opts.DeviceSigningKey, opts.Issuer))
		maintenance.Use(auth.DeviceAuth(opts.DeviceSigningKey, opts.Issuer))
	}
	scans.Use(mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst, deviceKey))
	{
		scans.POST("/instructor/outside", handler.InstructorOutsideScan)
		scans.POST("/instructor/inside", handler.InstructorInsideScan)
		scans.POST("/student/inside", handler.StudentInsideScan)
		scans.POST("/student/outside", handler.StudentOutsideScan)
		scans.POST("/access", handler.AccessScan)
	}
	maintenance.POST("/cleanup-early-arrivals", handler.CleanupEarlyArrivals)
	maintenance.POST("/reload-term", handler.ReloadTerm)

	return r
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, check := range checks {
			healthy := check(c.Request.Context())
			body[name] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}
