package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quocanhngo/pricewatch/internal/middleware"
	"github.com/quocanhngo/pricewatch/internal/service"
	"github.com/quocanhngo/pricewatch/internal/ws"
	"github.com/quocanhngo/pricewatch/pkg/auth"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP layer needs
type RouterConfig struct {
	Alerts        *service.AlertService
	Devices       *service.DeviceService
	Preferences   *service.PreferenceService
	Notifications *service.NotificationService
	Hub           *ws.Hub
	JWT           *auth.JWTManager
	Redis         *redis.Client // optional
	CORSOrigins   []string
	RatePerMinute int
	Log           *zap.Logger
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "pricewatch",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	alertHandler := NewAlertHandler(cfg.Alerts, log)
	deviceHandler := NewDeviceHandler(cfg.Devices, log)
	notificationHandler := NewNotificationHandler(cfg.Notifications, cfg.Preferences, log)
	statsHandler := NewStatsHandler(cfg.Devices, cfg.Alerts, log)

	api := router.Group("/api/v1")
	api.Use(
		middleware.AuthMiddleware(cfg.JWT, cfg.Redis),
		middleware.RateLimit(cfg.Redis, cfg.RatePerMinute, log),
	)
	{
		// Preferences
		api.GET("/notifications/preferences", notificationHandler.GetPreferences)
		api.PUT("/notifications/preferences", notificationHandler.UpdatePreferences)

		// Alerts
		api.GET("/alerts", alertHandler.ListAlerts)
		api.POST("/alerts", alertHandler.CreateAlert)
		api.GET("/alerts/:id", alertHandler.GetAlert)
		api.PUT("/alerts/:id", alertHandler.UpdateAlert)
		api.DELETE("/alerts/:id", alertHandler.DeleteAlert)
		api.POST("/alerts/:id/toggle", alertHandler.ToggleAlert)
		api.POST("/alerts/:id/check", alertHandler.CheckAlert)

		// Devices
		api.GET("/devices", deviceHandler.ListDevices)
		api.POST("/devices", deviceHandler.RegisterDevice)
		api.DELETE("/devices/:deviceId", deviceHandler.UnregisterDevice)

		// Notifications
		api.POST("/notifications/send", notificationHandler.SendNotification)
		api.POST("/notifications/test", notificationHandler.SendTestNotification)
		api.GET("/notifications/history", notificationHandler.GetHistory)

		// Stats
		api.GET("/stats/devices", statsHandler.DeviceStats)
		api.GET("/stats/prices", statsHandler.PriceStats)
	}

	if cfg.Hub != nil {
		// auth via query parameter
		router.GET("/ws", NewWSHandler(cfg.Hub, cfg.JWT, log).HandleWebSocket)
	}

	return router
}

// requestLogger opens a server span per request and logs it with the trace id
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	tracer := otel.Tracer("pricewatch")
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		log.Debug("http request", fields...)
	}
}
