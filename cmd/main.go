package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/openbaduk/award-system/config"
	"github.com/openbaduk/award-system/db"
	"github.com/openbaduk/award-system/handlers"
	"github.com/openbaduk/award-system/live"
	"github.com/openbaduk/award-system/repositories"
	api "github.com/openbaduk/award-system/routes"
	"github.com/openbaduk/award-system/services"
	"github.com/openbaduk/award-system/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Хранилище фотографий призов (опционально)
	var uploader storage.FileUploader
	if cfg.PhotoStorageConfigured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize photo storage", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("photo storage initialized")
	} else {
		logger.Warn("photo storage is not configured, prize photo upload disabled")
	}

	// Live-фид распределения
	hub := live.NewHub(logger)
	go hub.Run()

	// Инициализация репозиториев
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	prizeRepo := repositories.NewPostgresPrizeRepository(dbConn)
	awardRepo := repositories.NewPostgresAwardRepository(dbConn)
	preferenceRepo := repositories.NewPostgresPreferenceRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	eventService := services.NewEventService(eventRepo)
	playerService := services.NewPlayerService(dbConn, playerRepo, preferenceRepo, logger)
	prizeService := services.NewPrizeService(dbConn, prizeRepo, awardRepo, uploader, logger)
	preferenceService := services.NewPreferenceService(dbConn, preferenceRepo, playerRepo, awardRepo, logger)
	resultService := services.NewResultService(resultRepo, eventRepo)
	allocationService := services.NewAllocationService(dbConn, resultRepo, awardRepo, playerRepo, eventRepo, hub, logger)
	dashboardService := services.NewDashboardService(playerRepo, prizeRepo, awardRepo, resultRepo)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	eventHandler := handlers.NewEventHandler(eventService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	prizeHandler := handlers.NewPrizeHandler(prizeService)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceService)
	resultHandler := handlers.NewResultHandler(resultService, allocationService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(hub)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		eventHandler,
		playerHandler,
		prizeHandler,
		preferenceHandler,
		resultHandler,
		dashboardHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
