package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/foodar/foodar/app/controllers"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/billing"
	"github.com/foodar/foodar/internal/pkg/cache"
	"github.com/foodar/foodar/internal/pkg/database"
	"github.com/foodar/foodar/internal/pkg/env"
	"github.com/foodar/foodar/internal/pkg/identity"
	"github.com/foodar/foodar/internal/pkg/jobqueue"
	"github.com/foodar/foodar/internal/pkg/ledger"
	"github.com/foodar/foodar/internal/pkg/mail"
	"github.com/foodar/foodar/internal/pkg/metrics"
	"github.com/foodar/foodar/internal/pkg/metrics/counter"
	"github.com/foodar/foodar/internal/pkg/router"
	"github.com/foodar/foodar/internal/pkg/storage"
)

// Model uploads go through the API; the body limit leaves room for the
// multipart envelope around a maximum-size model.
const bodyLimit = 55 << 20

func main() {
	env.SetupEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, shutdown, err := NewApplication(ctx)
	if err != nil {
		log.Fatalf("[App] Startup failed: %v", err)
	}

	go func() {
		<-ctx.Done()
		log.Info("[App] Shutting down")
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			log.Errorf("[App] Shutdown failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("[App] Listen failed: %v", err)
	}
	stop()
	shutdown()
}

// NewApplication wires all components. Background workers run until ctx is
// cancelled; the returned func then waits for them and closes connections.
func NewApplication(ctx context.Context) (*fiber.App, func(), error) {
	billingCfg, err := billing.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	identityCfg, err := identity.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(database.LoadConfig())
	if err != nil {
		return nil, nil, err
	}
	if env.IsDev() {
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
	}

	redisClient := cache.NewClientFromEnv(ctx)
	menuCache := cache.New(redisClient, "foodar:")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(registry, "foodar")

	repos := repository.NewRepositories(db)
	mailer := mail.NewMailer(mail.LoadConfig())
	lemonSqueezy := billing.NewLemonSqueezyClient(*billingCfg, appMetrics)

	var (
		manager   *jobqueue.Manager
		usage     billing.UsageDispatcher
		outbox    mail.Outbox
		recounter controllers.ProductRecounter
	)
	queueEnabled := env.GetEnv("JOB_QUEUE_ENABLED", "true") == "true"
	if queueEnabled {
		queue := jobqueue.NewQueue(redisClient, env.GetEnvInt("JOB_QUEUE_WORKERS", 3))
		queue.SetMetrics(appMetrics)
		manager = jobqueue.NewManager(queue, repos.Subscription, env.GetEnvDuration("USAGE_RESYNC_INTERVAL", time.Hour))
		usage = manager.Dispatcher()
		outbox = manager.Dispatcher()
		recounter = manager.Dispatcher()
	} else {
		log.Warn("[App] Job queue disabled, background work runs in goroutines")
		usage = billing.NewAsyncUsageDispatcher(lemonSqueezy, 0)
		outbox = mail.DirectOutbox{Mailer: mailer}
	}

	notifier := mail.NewNotifier(outbox)
	webhookLedger := ledger.NewFromDB(db)
	billingSvc := billing.NewService(billing.NewRepository(db), webhookLedger, *billingCfg,
		billing.WithUsageDispatcher(usage),
		billing.WithPaymentNotifier(notifier),
		billing.WithMetrics(appMetrics),
	)
	if queueEnabled {
		jobqueue.RegisterHandlers(manager.GetQueue(), lemonSqueezy, billingSvc, mailer)
		manager.Start()
	} else {
		recounter = billing.NewAsyncRecounter(billingSvc, 0)
	}

	identitySvc := identity.NewService(repos.User, webhookLedger, appMetrics)
	jwks, err := identity.NewJWKSCache(ctx, identityCfg.JWKSURL, identityCfg.JWKSTTL, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, nil, err
	}
	verifier := identity.NewVerifier(jwks, identityCfg.Issuer, identityCfg.Leeway)

	menuViews := counter.NewMenuViews(redisClient, repos.Restaurant)
	viewsDone := make(chan struct{})
	go func() {
		defer close(viewsDone)
		menuViews.Run(ctx, env.GetEnvDuration("MENU_VIEWS_FLUSH_INTERVAL", time.Minute))
	}()

	var objectStore controllers.ObjectStore
	if storageCfg, err := storage.LoadConfig(); err != nil {
		log.Warnf("[App] Model storage disabled: %v", err)
	} else if store, err := storage.NewStore(ctx, storageCfg); err != nil {
		log.Warnf("[App] Model storage unreachable: %v", err)
	} else {
		objectStore = store
	}

	app := fiber.New(fiber.Config{
		AppName:   "foodar",
		BodyLimit: bodyLimit,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Dependencies{
		Verifier:    verifier,
		Users:       repos.User,
		Restaurants: repos.Restaurant,
		Access:      billingSvc,

		Webhooks:      controllers.NewWebhookController(billingSvc, identitySvc, billingCfg.WebhookSecret, identityCfg.WebhookSecret, appMetrics),
		Restaurant:    controllers.NewRestaurantController(repos.Restaurant),
		Admin:         controllers.NewAdminController(repos.Restaurant, notifier, env.GetEnvInt("TRIAL_DAYS", 0)),
		Products:      controllers.NewProductController(repos.Product, repos.Model3D, recounter, menuCache),
		Models:        controllers.NewModelController(repos.Model3D, objectStore),
		Menu:          controllers.NewMenuController(repos.Restaurant, repos.Product, repos.Model3D, billingSvc, menuCache, menuViews),
		Subscriptions: controllers.NewSubscriptionController(billingSvc, lemonSqueezy, env.IsDev()),

		LimiterStorage: router.NewLimiterStorage(),
		Limits:         router.LoadRateLimits(),
		Gatherer:       registry,
		HealthCheck:    healthCheck(db, redisClient),
	})

	// shutdown expects ctx to be cancelled already.
	shutdown := func() {
		<-viewsDone
		if manager != nil {
			manager.Stop()
		}
		if err := redisClient.Close(); err != nil {
			log.Warnf("[App] Closing cache client: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return app, shutdown, nil
}

func healthCheck(db *gorm.DB, client *goredis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		return nil
	}
}
