package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"estateleads/config"
	controller "estateleads/controllers"
	"estateleads/metrics"
	"estateleads/middleware"
	"estateleads/repository"
	"estateleads/routes"
	"estateleads/utils"
	"estateleads/worker"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	// Initialize logger
	utils.SetupLogger(cfg.Environment, cfg.LogLevel)
	if err := utils.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logrus.WithError(err).Warn("Sentry disabled")
	}
	defer sentry.Flush(2 * time.Second)

	loc, err := cfg.Location()
	if err != nil {
		logrus.Fatalf("Invalid TIMEZONE: %v", err)
	}
	policy, err := cfg.ScoringPolicy()
	if err != nil {
		logrus.Fatalf("Invalid LEAD_SCORE_WEIGHTS: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "estateleads",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowedOrigins = cfg.CORSOrigins
	}
	app.Use(middleware.CORS(corsConfig))

	m := metrics.New()
	hub := controller.NewReminderHub(loc, m)
	rateStorage := middleware.RateLimitStorage(cfg.Redis)

	// Setup routes
	routes.SetupRoutes(app, config.DB, routes.Options{
		JWTSecret:       cfg.JWTSecret,
		Policy:          policy,
		Location:        loc,
		Metrics:         m,
		Hub:             hub,
		ActionRateLimit: cfg.ActionRateLimit,
		RateStorage:     rateStorage,
		RequestLogging:  true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize and start reminder worker
	repo := repository.NewLeadRepository(config.DB, policy, loc)
	reminderWorker := worker.NewReminderWorker(repo, hub, m, loc, logrus.WithField("component", "reminder_worker"))
	reminderWorker.SweepSpec = cfg.ReminderSweepCron
	reminderWorker.DigestSpec = cfg.ReminderDigestCron
	if cfg.SMTP.Enabled() {
		mailer := utils.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		reminderWorker.WithDigest(mailer, cfg.ReminderDigestRecipient)
	}
	if err := reminderWorker.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start reminder worker: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutting down server...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	logrus.Infof("🚀 Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
