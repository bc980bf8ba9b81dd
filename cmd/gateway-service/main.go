package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-analyst-gateway/internal/gateway/config"
	delivery "golang-analyst-gateway/internal/gateway/delivery/http"
	_ "golang-analyst-gateway/internal/gateway/docs"
	"golang-analyst-gateway/internal/gateway/repository"
	"golang-analyst-gateway/internal/gateway/service"
	"golang-analyst-gateway/pkg/logger"
	"golang-analyst-gateway/pkg/postgres"
	"golang-analyst-gateway/pkg/redis"
	"golang-analyst-gateway/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the analyst gateway service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Analyst Gateway Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	companyRepo := repository.NewCompanyRepository(db.DB)
	finnhubRepo := repository.NewFinnhubRepository(cfg, appLogger, redisClient)
	exchangeRateRepo := repository.NewExchangeRateRepository(cfg, appLogger)
	newsRepo := repository.NewNewsFeedRepository(cfg, appLogger)
	openAIRepo := repository.NewOpenAIRepository(cfg, appLogger)

	// Select the completion provider. The tool-calling chat model is always
	// OpenAI; plain completions can run on Gemini instead.
	var completionRepo repository.CompletionRepository
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Gemini.APIKey,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
		}
		completionRepo = repository.NewGeminiRepository(cfg, appLogger, genAiClient)
	default:
		completionRepo = openAIRepo
	}

	documentRepo, err := repository.NewDocumentRepository(cfg, appLogger, openAIRepo)
	if err != nil {
		appLogger.Fatal("Failed to initialize document repository", logger.ErrorField(err))
	}

	var notifier telegram.Notifier = telegram.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize services
	sessions := service.NewSessionStore(cfg.Gateway.SessionTimeout, appLogger)
	rateLimiter := service.NewRateLimiter(cfg.Gateway.RateLimitRequests, cfg.Gateway.RateLimitWindow)
	validator := service.NewInputValidator(cfg.Gateway.StrictMode)
	resolver := service.NewTickerResolver(companyRepo, completionRepo, appLogger)
	aggregator := service.NewDataAggregator(companyRepo, finnhubRepo, documentRepo, appLogger)
	invoker := service.NewToolInvoker(finnhubRepo, companyRepo, exchangeRateRepo, completionRepo, newsRepo, appLogger)
	charts := service.NewChartService(appLogger)
	pdf := service.NewPdfService(cfg.Report.PDFFontPath, appLogger)
	reports := service.NewReportService(aggregator, finnhubRepo, completionRepo, newsRepo, charts, pdf, appLogger)
	orchestrator := service.NewConversationOrchestrator(cfg, sessions, resolver, aggregator, invoker, openAIRepo, reports, appLogger)
	gateway := service.NewChatGateway(cfg, sessions, rateLimiter, validator, orchestrator, notifier, appLogger)

	// Background jobs: expired-session sweep and market news prefetch.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Gateway.SessionSweepSpec, func() {
		if removed := gateway.SweepExpiredSessions(); removed > 0 {
			appLogger.Info("Swept expired sessions", logger.IntField("count", removed))
		}
	}); err != nil {
		appLogger.Fatal("Failed to schedule session sweep", logger.ErrorField(err))
	}
	if cfg.News.PrefetchSpec != "" {
		if _, err := scheduler.AddFunc(cfg.News.PrefetchSpec, func() {
			prefetchCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := newsRepo.GetMarketHeadlines(prefetchCtx, "general"); err != nil {
				appLogger.Warn("Market news prefetch failed", logger.ErrorField(err))
			}
		}); err != nil {
			appLogger.Fatal("Failed to schedule news prefetch", logger.ErrorField(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	chatHandler := delivery.NewChatHandler(gateway, appLogger)
	sessionHandler := delivery.NewSessionHandler(gateway, appLogger)

	apiV1 := e.Group("/api/v1")
	chatHandler.RegisterRoutes(apiV1.Group("/chat"))
	sessionHandler.RegisterRoutes(apiV1.Group("/sessions"))

	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

// @title Analyst Gateway API
// @version 1.0
// @description Conversational gateway for the financial analysis assistant.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "gateway-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-gateway.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing gateway-service CLI: %s\n", err)
		os.Exit(1)
	}
}
