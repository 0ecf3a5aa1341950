package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/pricewatch/internal/config"
	"github.com/quocanhngo/pricewatch/internal/handler"
	"github.com/quocanhngo/pricewatch/internal/logger"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/price"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"github.com/quocanhngo/pricewatch/internal/scheduler"
	"github.com/quocanhngo/pricewatch/internal/service"
	"github.com/quocanhngo/pricewatch/internal/ws"
	"github.com/quocanhngo/pricewatch/migrations"
	"github.com/quocanhngo/pricewatch/pkg/auth"
	"github.com/quocanhngo/pricewatch/pkg/notification"
	"github.com/quocanhngo/pricewatch/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           PriceWatch API
// @version         1.0
// @description     Price alerts and push notifications for wallet users.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type stores struct {
	alerts repository.AlertStore
	device repository.DeviceStore
	prefs  repository.PreferenceStore
}

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	if err := logger.InitLogger(cfg.App.Env, cfg.App.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Log
	log.Info("starting pricewatch", zap.String("env", cfg.App.Env))

	ctx := context.Background()

	// ==================== Tracing ====================
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		log.Fatal("failed to init tracing", zap.Error(err))
	}

	// ==================== Storage ====================
	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}

	// ==================== Redis ====================
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	// ==================== Prices ====================
	prices, err := newPriceSource(cfg.Price, rdb, log)
	if err != nil {
		log.Fatal("failed to set up prices", zap.Error(err))
	}

	// ==================== Push ====================
	provider, err := newPushProvider(ctx, cfg.Push, log)
	if err != nil {
		log.Fatal("failed to set up push provider", zap.Error(err))
	}

	// ==================== Services ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	deviceService := service.NewDeviceService(st.device, log.Named("devices"))
	preferenceService := service.NewPreferenceService(st.prefs, log.Named("preferences"))
	dispatcher := service.NewDispatcher(deviceService, provider, cfg.Push.DeliveryTimeout, log.Named("dispatcher"))
	notificationService := service.NewNotificationService(
		preferenceService,
		dispatcher,
		service.NewHistory(cfg.Push.HistorySize),
		log.Named("notifications"),
	)
	evaluator := service.NewEvaluator(st.alerts, prices, notificationService, log.Named("evaluator"),
		service.WithCooldown(cfg.Alerts.Cooldown),
		service.WithMaxConcurrentFetch(cfg.Alerts.MaxConcurrentFetch),
	)
	alertService := service.NewAlertService(st.alerts, prices, evaluator, log.Named("alerts"))

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb, log.Named("ws"))
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)
	notificationService.SetPublisher(hub)

	// ==================== Scheduler ====================
	sched := scheduler.New("alert-evaluation", cfg.Alerts.EvaluationInterval, func(ctx context.Context) error {
		_, err := evaluator.RunPass(ctx)
		return err
	}, log.Named("scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Alerts:        alertService,
		Devices:       deviceService,
		Preferences:   preferenceService,
		Notifications: notificationService,
		Hub:           hub,
		JWT:           jwtManager,
		Redis:         rdb,
		CORSOrigins:   cfg.CORS.Origins,
		RatePerMinute: cfg.RateLimit.PerMinute,
		Log:           log.Named("http"),
	})

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("pricewatch API running",
		zap.String("addr", "http://0.0.0.0:"+cfg.App.Port),
		zap.String("docs", "/swagger/index.html"),
		zap.String("ws", "/ws?token=<jwt>"),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// stop scheduling first so no pass starts while the API drains
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn("scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	hubCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
	log.Info("server exited gracefully")
}

func openStores(cfg *config.Config, log *zap.Logger) (stores, error) {
	if cfg.Storage.Driver != "postgres" {
		log.Info("using in-memory storage")
		return stores{
			alerts: repository.NewMemoryAlertStore(),
			device: repository.NewMemoryDeviceStore(),
			prefs:  repository.NewMemoryPreferenceStore(),
		}, nil
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.Env == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return stores{}, err
	}
	log.Info("connected to PostgreSQL")

	if err := migrations.Run(cfg.DB.URL(), log.Named("migrate")); err != nil {
		log.Warn("migration failed, falling back to AutoMigrate", zap.Error(err))
		if err := db.AutoMigrate(
			&model.PriceAlert{},
			&model.UserDevice{},
			&model.NotificationPreferences{},
		); err != nil {
			return stores{}, err
		}
	}

	return stores{
		alerts: repository.NewAlertRepository(db),
		device: repository.NewDeviceRepository(db),
		prefs:  repository.NewPreferenceRepository(db),
	}, nil
}

func newPriceSource(cfg config.PriceConfig, rdb *redis.Client, log *zap.Logger) (*price.Source, error) {
	var feed price.Feed
	switch cfg.Feed {
	case "coingecko":
		feed = price.NewCoinGeckoFeed(price.CoinGeckoOptions{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			RequestsPerSec: cfg.RequestsPerSec,
			Timeout:        cfg.FetchTimeout,
		}, log.Named("coingecko"))
		if cfg.FallbackUnknown {
			feed = price.FallbackFeed{Feed: feed}
		}
	case "static", "":
		feed = price.NewStaticFeed(price.DefaultQuotes, cfg.FallbackUnknown)
	default:
		return nil, errors.New("unknown price feed " + cfg.Feed)
	}

	var cache price.Cache
	switch cfg.Cache {
	case "redis":
		if rdb == nil {
			return nil, errors.New("PRICE_CACHE=redis requires REDIS_ENABLED=true")
		}
		// entries outlive the TTL so stats can still show them
		cache = price.NewRedisCache(rdb, 10*cfg.CacheTTL)
	default:
		cache = price.NewMemoryCache()
	}

	return price.NewSource(feed, cache, log.Named("prices"),
		price.WithTTL(cfg.CacheTTL),
		price.WithFetchTimeout(cfg.FetchTimeout),
	), nil
}

func newPushProvider(ctx context.Context, cfg config.PushConfig, log *zap.Logger) (notification.Provider, error) {
	logProvider := notification.NewLogProvider(log.Named("push"))
	if cfg.Provider != "fcm" {
		return logProvider, nil
	}

	fcm, err := notification.NewFCMProvider(ctx, cfg.CredentialsFile, log.Named("fcm"))
	if err != nil {
		return nil, err
	}
	// FCM reaches APNs for iOS tokens too
	return notification.NewRouter(logProvider).
		Route(model.PlatformIOS, fcm).
		Route(model.PlatformAndroid, fcm), nil
}
