package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	flog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PhilDL/shuken/app/controllers"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/cache"
	"github.com/PhilDL/shuken/internal/pkg/database"
	"github.com/PhilDL/shuken/internal/pkg/env"
	"github.com/PhilDL/shuken/internal/pkg/hcaptcha"
	"github.com/PhilDL/shuken/internal/pkg/mail"
	"github.com/PhilDL/shuken/internal/pkg/media"
	"github.com/PhilDL/shuken/internal/pkg/memberauth"
	"github.com/PhilDL/shuken/internal/pkg/pricing"
	"github.com/PhilDL/shuken/internal/pkg/router"
	"github.com/PhilDL/shuken/views"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, reconciler := NewApplication(ctx)
	go func() {
		<-ctx.Done()
		flog.Info("[Main] Shutting down")
		reconciler.Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication(ctx context.Context) (*fiber.App, *pricing.Reconciler) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/shuken to project root
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	// billing provider and plan reconciliation
	stripeProvider := billing.NewStripeProviderFromEnv()
	locker := pricing.NewRedisLocker(cache.GetClient())
	priceStore := pricing.NewStore(db)
	plans := pricing.NewService(priceStore, stripeProvider, locker, env.GetDuration("STRIPE_TIMEOUT", pricing.DefaultProviderTimeout))
	reconciler := pricing.NewReconciler(priceStore, plans.Applier(), locker,
		env.GetDuration("RECONCILE_MIN_AGE", 2*time.Minute),
		env.GetInt("RECONCILE_MAX_ATTEMPTS", 10),
	)
	if err := reconciler.Start(ctx, env.GetEnv("RECONCILE_SCHEDULE", "@every 5m")); err != nil {
		panic(err)
	}

	mediaCfg, err := media.LoadConfig()
	if err != nil {
		panic(err)
	}
	mediaStore, err := media.NewStoreFromConfig(ctx, mediaCfg)
	if err != nil {
		panic(err)
	}

	magicLinkSecret := env.GetEnv("MAGIC_LINK_SECRET", "")
	if magicLinkSecret == "" {
		panic("MAGIC_LINK_SECRET must be set")
	}

	publicURL := env.GetEnv("PUBLIC_DOMAIN", "")
	deps := controllers.Dependencies{
		Repos:         repos,
		Plans:         plans,
		Sweeper:       reconciler,
		Customers:     stripeProvider,
		Webhooks:      stripeProvider,
		Subscriptions: billing.NewServiceFromDB(db, stripeProvider),
		Members:       memberauth.NewService(db, mail.NewSMTPMailerFromEnv(), magicLinkSecret, publicURL),
		Captcha:       hcaptcha.NewVerifierFromEnv(),
		Media:         media.NewService(db, mediaStore, mediaCfg.MaxBytes),
		PublicURL:     publicURL,
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     views.NewEngine(basePath + "views"),
		BodyLimit: int(mediaCfg.MaxBytes) + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// metrics
	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	})
	app.Get("/metrics", metricsAuth, adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/monitor", metricsAuth, monitor.New())

	// static files
	app.Static("/", basePath+"public", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// static uploads
	app.Static(mediaCfg.LocalURL, basePath+mediaCfg.LocalDir, fiber.Static{
		CacheDuration: 10 * time.Second,
		MaxAge:        604800, // 7 days
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	err = router.InstallRouter(app, router.Options{
		Deps:            deps,
		OpenAPISpecPath: basePath + "public/docs/v1/openapi.yml",
	})
	if err != nil {
		panic(err)
	}

	return app, reconciler
}
