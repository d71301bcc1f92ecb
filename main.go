package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parishfund/server/config"
	"parishfund/server/internal/calltimer"
	"parishfund/server/internal/database"
	"parishfund/server/internal/handlers"
	"parishfund/server/internal/logger"
	"parishfund/server/internal/messaging"
	"parishfund/server/internal/routes"
	ws "parishfund/server/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("failed to apply schema")
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	svc := messaging.NewService(messaging.NewPostgresRepository(pool), log, messaging.Options{
		EligibleRoles: cfg.Messaging.EligibleRoles,
		MaxBodyLength: cfg.Messaging.MaxBodyLength,
		Notifier:      hub,
	})

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Parish Fund API v1.0",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, []byte(cfg.JWT.Secret), routes.Handlers{
		Messages:  handlers.NewMessageHandler(svc),
		Timer:     handlers.NewTimerHandler(calltimer.NewPostgresStorage(pool), log, cfg.CallTimer.RefreshInterval),
		WebSocket: handlers.NewWebSocketHandler(hub),
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithField("port", cfg.Server.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
