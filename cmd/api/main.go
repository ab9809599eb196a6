package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/handlers"
	"github.com/burnoutcheck/backend/internal/middleware"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories"
	"github.com/burnoutcheck/backend/internal/services"
	"github.com/burnoutcheck/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: !cfg.IsProduction(),
	})
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	db, err := models.InitDB(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient := models.InitRedis(cfg, log)
	defer redisClient.Close()

	repos := repositories.New(db, cfg.SessionExpiry)

	// Collaborators
	mailer, err := services.NewMailer(cfg, log)
	if err != nil {
		log.Fatal("failed to configure email", zap.Error(err))
	}
	emailService, err := services.NewEmailService(mailer, cfg.OTPExpiry)
	if err != nil {
		log.Fatal("failed to load email templates", zap.Error(err))
	}
	smsSender, err := services.NewSMSSender(cfg, log)
	if err != nil {
		log.Fatal("failed to configure sms", zap.Error(err))
	}
	generator, err := services.NewTextGenerator(cfg)
	if err != nil {
		log.Fatal("failed to configure report generator", zap.Error(err))
	}
	payments, err := services.NewPaymentProvider(cfg)
	if err != nil {
		log.Fatal("failed to configure payment provider", zap.Error(err))
	}

	// Services
	otpService := services.NewOTPService(repos.Codes, cfg, log)
	reportService := services.NewReportService(repos, generator, emailService, services.NewPDFService(), cfg.ReportTimeout, log)
	archive, err := services.NewS3Archive(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to configure report archive", zap.Error(err))
	}
	if archive != nil {
		reportService.AttachArchive(archive)
		log.Info("report archive enabled", zap.String("bucket", cfg.ArchiveBucket))
	}
	funnelService := services.NewFunnelService(services.FunnelDeps{
		Repos:    repos,
		OTP:      otpService,
		Reports:  reportService,
		Email:    emailService,
		SMS:      smsSender,
		Payments: payments,
		QR:       services.NewQRService(),
		Logger:   log,
	})
	expiryService := services.NewExpiryService(repos, cfg.SessionExpiry, cfg.OTPExpiry, cfg.ReaperInterval, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Expired session reaper
	go expiryService.Run(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg, log))

	funnelHandler := handlers.NewFunnelHandler(funnelService, cfg.OTPExpiry, log)
	stripeHandler := handlers.NewStripeHandler(funnelService, cfg.StripeWebhookSecret, log)

	api := router.Group("/api")
	{
		funnelHandler.Register(api)

		// Payment webhooks
		if cfg.StripeWebhookSecret != "" {
			api.POST("/payment/webhook/stripe", stripeHandler.HandleWebhook)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// Report generation waits on the language model.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ReportTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Port), zap.String("payment_provider", payments.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited")
}
