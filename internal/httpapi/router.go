package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"polytechnic/internal/auth"
	"polytechnic/internal/httpmiddleware"
	"polytechnic/internal/metrics"
)

// Router assembles the gin engine with the shared middleware stack.
func Router(h *Handler) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(h.cfg.RateLimitPerMin, h.cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", h.Healthz)

	r.POST("/v1/staff/register", h.RegisterStaff)
	r.POST("/v1/staff/refresh", h.RefreshToken)

	authed := r.Group("/v1", auth.StaffAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	staffOnly := authed.Group("", auth.RequireRole(auth.RoleStaff))
	staffOnly.POST("/attendance", h.MarkAttendance)
	staffOnly.GET("/attendance", h.GetClassAttendance)
	staffOnly.GET("/schedules", h.ListSchedules)
	staffOnly.GET("/rewards-fines", h.ListRewardsFines)

	adminOnly := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	adminOnly.POST("/schedules", h.CreateSchedule)
	adminOnly.PUT("/schedules/:id", h.UpdateSchedule)
	adminOnly.POST("/rewards-fines/recompute", h.EnqueueRecompute)

	return r
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
