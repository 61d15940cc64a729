package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/controller"
	"github.com/ValenBorras/nutritional-coach-sub001/internal/middleware"
	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/config"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/cron"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/database"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/email"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/seed"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Public subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", controller.ListPlans)

	// Stripe webhook. Registered before any auth middleware: Stripe signs
	// its deliveries, it does not carry a session.
	api.Post("/webhook", controller.HandleStripeWebhook)

	// Protected subscription routes
	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Post("/create-checkout-session", controller.CreateCheckoutSession)
	subProtected.Post("/cancel", controller.CancelSubscription)
	subProtected.Post("/sync", controller.SyncSubscription)
	subProtected.Post("/portal", controller.CreatePortalSession)
	subProtected.Get("/status", controller.GetSubscriptionStatus)

	// Patient key routes
	keys := api.Group("/patient-keys", middleware.AuthMiddleware())
	keys.Post("/", middleware.RequireRole(model.RoleNutritionist), controller.GeneratePatientKey)
	keys.Get("/", middleware.RequireRole(model.RoleNutritionist), controller.ListPatientKeys)
	keys.Post("/connect", middleware.RequireRole(model.RolePatient), controller.ConnectPatientKey)

	// Protected profile routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	if cfg.ResendAPIKey != "" {
		if err := email.InitEmailService(cfg.ResendAPIKey); err != nil {
			log.Fatal("Could not initialize email service:", err)
		}
	} else {
		log.Println("RESEND_API_KEY not set, email notifications disabled")
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.DatabaseURL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Plan{},
		&model.Subscription{},
		&model.Trial{},
		&model.PatientKey{},
		&model.BillingEvent{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	seed.SeedPlans(database.GetDB())
	cron.InitBillingSweepCron()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
