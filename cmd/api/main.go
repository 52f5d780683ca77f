package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ksmp-platform/contact-api/internal/config"
	"github.com/ksmp-platform/contact-api/internal/database"
	"github.com/ksmp-platform/contact-api/internal/handler"
	"github.com/ksmp-platform/contact-api/internal/middleware"
	"github.com/ksmp-platform/contact-api/internal/models"
	"github.com/ksmp-platform/contact-api/internal/repository"
	"github.com/ksmp-platform/contact-api/internal/router"
	"github.com/ksmp-platform/contact-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.ContactSettings{},
		&models.ContactRequest{},
		&models.ContactConversation{},
		&models.ContactMessage{},
		&models.ContactNotification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	settingsRepo := repository.NewContactSettingsRepository(db)
	requestRepo := repository.NewContactRequestRepository(db)
	conversationRepo := repository.NewContactConversationRepository(db)
	messageRepo := repository.NewContactMessageRepository(db)
	notificationRepo := repository.NewContactNotificationRepository(db)

	settingsService := service.NewSettingsService(settingsRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.EventChannelBase, natsConn, logger)
	conversationService := service.NewConversationService(conversationRepo, logger)
	messageService := service.NewMessageService(messageRepo, conversationService, settingsService, notificationService, redisClient, cfg.EventChannelBase, natsConn, validate, logger)
	requestService := service.NewRequestService(requestRepo, settingsService, notificationService, validate, logger)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	notificationService.Start(runCtx)
	messageService.Start(runCtx)

	settingsHandler := handler.NewSettingsHandler(settingsService, logger)
	requestHandler := handler.NewRequestHandler(requestService, logger)
	conversationHandler := handler.NewConversationHandler(conversationService, messageService, logger)
	messageHandler := handler.NewMessageHandler(messageService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, validate, logger, cfg.SSEKeepAlive)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SettingsHandler:     settingsHandler,
		RequestHandler:      requestHandler,
		ConversationHandler: conversationHandler,
		MessageHandler:      messageHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
