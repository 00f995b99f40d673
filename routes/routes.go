package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "estateleads/controllers"
	"estateleads/leads"
	"estateleads/metrics"
	"estateleads/middleware"
	"estateleads/repository"
)

// Options carries what the handlers need besides the database
type Options struct {
	JWTSecret       string
	Policy          leads.ScoringPolicy
	Location        *time.Location
	Metrics         *metrics.Metrics
	Hub             *controller.ReminderHub
	ActionRateLimit int
	RateStorage     fiber.Storage
	RequestLogging  bool
	Now             func() time.Time
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, opts Options) {
	repo := repository.NewLeadRepository(db, opts.Policy, opts.Location)
	if opts.Now != nil {
		repo.Now = opts.Now
	}

	leadController := controller.NewLeadController(repo, opts.Metrics, logrus.WithField("component", "leads"))
	actionController := controller.NewActionController(repo, opts.Metrics, logrus.WithField("component", "actions"))
	reminderController := controller.NewReminderController(repo, opts.Hub, logrus.WithField("component", "reminders"))

	handlers := []fiber.Handler{middleware.Protected(opts.JWTSecret)}
	if opts.RequestLogging {
		handlers = append(handlers, logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	// API group with versioning and protection
	api := app.Group("/api/v1", handlers...)

	// Seeker actions, rate limited per caller
	api.Post("/leads/actions", middleware.SeekersOnly(), middleware.ActionRateLimiter(opts.ActionRateLimit, opts.RateStorage), actionController.RecordAction)

	// Lead routes
	listers := middleware.ListersOnly()
	lead := api.Group("/leads")
	lead.Get("/", listers, leadController.GetLeads)
	lead.Get("/stats", listers, leadController.GetLeadStats)
	lead.Get("/:id", listers, leadController.GetLead)
	lead.Patch("/:id", listers, leadController.PatchLead)

	// Reminder routes
	reminders := api.Group("/reminders")
	reminders.Get("/", listers, reminderController.GetReminders)
	reminders.Get("/stream", listers, controller.UpgradeReminderStream, websocket.New(reminderController.StreamReminders))

	logrus.Info("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, opts Options) {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Hub == nil {
		opts.Hub = controller.NewReminderHub(opts.Location, opts.Metrics)
	}
	if opts.ActionRateLimit <= 0 {
		opts.ActionRateLimit = 30
	}

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "database unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))

	SetupAPIRoutes(app, db, opts)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Not Found",
			"details": "The requested resource was not found",
		})
	})
}
