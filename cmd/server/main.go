package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/lawchat/lawchat-backend/internal/api"
	"github.com/lawchat/lawchat-backend/internal/config"
	"github.com/lawchat/lawchat-backend/internal/exchange"
	"github.com/lawchat/lawchat-backend/internal/repository/sqlite"
	"github.com/lawchat/lawchat-backend/internal/services"
)

func main() {
	// Load .env if present; real config comes from config.Load
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// A storage failure at startup is fatal: running without durable
	// history would silently lose conversations.
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open chat history database")
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	client := exchange.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.Origin, logger)
	svc := services.NewConversationService(store, client, logger)

	// Make sure there is a session to land in on first launch
	if _, err := svc.Bootstrap(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to bootstrap initial session")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LawChat Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	api.SetupRoutes(app, svc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithField("addr", addr).Info("LawChat backend starting")
	if err := app.Listen(addr); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
