package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/plumbline/internal"
	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/billing"
	"github.com/DukeRupert/plumbline/internal/crm"
	crmmock "github.com/DukeRupert/plumbline/internal/crm/mock"
	"github.com/DukeRupert/plumbline/internal/crm/servicetitan"
	"github.com/DukeRupert/plumbline/internal/email"
	"github.com/DukeRupert/plumbline/internal/handler"
	"github.com/DukeRupert/plumbline/internal/jobs"
	"github.com/DukeRupert/plumbline/internal/metrics"
	"github.com/DukeRupert/plumbline/internal/middleware"
	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/session"
	"github.com/DukeRupert/plumbline/internal/sms"
	"github.com/DukeRupert/plumbline/internal/storage"
	"github.com/DukeRupert/plumbline/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	isSecure := cfg.IsSecure()

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	repo := repository.New(db)

	// ==========================================================================
	// Sessions
	// ==========================================================================

	var (
		redisClient  *redis.Client
		sessionStore session.Store
	)
	switch cfg.SessionStore {
	case "redis":
		redisClient, err = session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient)
	default:
		sessionStore = session.NewMemoryStore()
	}

	sessions, err := session.NewManager(sessionStore, []byte(cfg.SessionSecret), logger,
		session.WithTTL(cfg.SessionTTL),
		session.WithScopeTTL(cfg.SessionScopeTTL),
	)
	if err != nil {
		return fmt.Errorf("session manager initialization failed: %w", err)
	}
	reaperDone := sessions.StartReaper(ctx, cfg.SessionReaperInterval)
	logger.Info("Sessions ready", "store", cfg.SessionStore, "ttl", cfg.SessionTTL)

	// ==========================================================================
	// External collaborators
	// ==========================================================================

	crmClient, err := newCRM(cfg, logger)
	if err != nil {
		return fmt.Errorf("crm initialization failed: %w", err)
	}

	smsSender, err := newSMSSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("sms initialization failed: %w", err)
	}

	var emailService email.EmailService
	if cfg.EmailProvider == "smtp" {
		emailService = email.NewSMTPEmailService(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger)
	} else {
		emailService = email.NewLogEmailService(logger)
	}

	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Warn("Stripe is not configured; online invoice payment is disabled")
	}

	photoStore, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	verificationService := service.NewVerificationService(repo, logger)
	resolverService := service.NewResolverService(crmClient, logger)
	adminService := service.NewAdminService(repo, logger)
	paymentService := service.NewPaymentService(repo, logger)
	photoService := service.NewPhotoService(repo, photoStore, service.NewImagingProcessor(), logger)
	guard := auth.NewGuard(logger, sessions.Now)

	if cfg.AdminBootstrapEmail != "" {
		created, err := adminService.Bootstrap(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapName, cfg.AdminBootstrapPassword)
		if err != nil {
			return fmt.Errorf("admin bootstrap failed: %w", err)
		}
		if created {
			logger.Info("Created first staff account", "email", cfg.AdminBootstrapEmail)
		}
	}

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var w *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		w, err = worker.New(db, repo, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		w.Register(jobs.NewSendPaymentReceiptHandler(paymentService, crmClient, emailService, logger))
		w.Register(jobs.NewPurgeExpiredHandler(verificationService, adminService, logger))
		w.Start(ctx)
		w.Every(ctx, cfg.PurgeInterval, worker.JobTypePurgeExpired, func(ctx context.Context) error {
			_, err := worker.EnqueuePurgeExpired(ctx, repo, "schedule")
			return err
		})
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	sessionMw := middleware.NewSessionMiddleware(sessions, logger, isSecure)
	adminMw := middleware.NewAdminAuthMiddleware(adminService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	verifyLimiter, loginLimiter := newLimiters(ctx, cfg, redisClient)
	limitVerify := middleware.RateLimit(verifyLimiter, "verify", logger)
	limitLogin := middleware.RateLimit(loginLimiter, "admin_login", logger)

	requireSession := middleware.Stack(sessionMw.WithSession, sessionMw.RequireSession)
	requireAdmin := middleware.Stack(adminMw.WithAdmin, adminMw.RequireAdmin)

	// ==========================================================================
	// Handlers and routes
	// ==========================================================================

	identity := handler.NewIdentity(verificationService, resolverService, sessions, smsSender, emailService,
		handler.IdentityConfig{CompanyName: cfg.CompanyName, BaseURL: cfg.BaseURL, IsSecure: isSecure}, logger)

	portalHandler := handler.NewPortalHandler(identity, resolverService, sessions, crmClient, guard,
		billingService, photoService, logger, isSecure, cfg.PortalURL)
	schedulerHandler := handler.NewSchedulerHandler(identity, resolverService, sessions, crmClient, guard, logger, isSecure)
	adminHandler := handler.NewAdminHandler(adminService, paymentService, verificationService, repo, logger, isSecure)
	webhookHandler := handler.NewWebhookHandler(billingService, paymentService, repo, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	portalHandler.RegisterRoutes(mux, requireSession, limitVerify)
	schedulerHandler.RegisterRoutes(mux, requireSession, limitVerify)
	adminHandler.RegisterRoutes(mux, requireAdmin, middleware.CSRF(logger), limitLogin)
	webhookHandler.RegisterRoutes(mux)

	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	if cfg.StorageProvider == storage.ProviderLocal {
		files := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	appHandler := middleware.Stack(
		middleware.ClientIP(cfg.TrustedProxies),
		metrics.Middleware,
		loggingMw.Handler,
		securityMw.Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           appHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if w != nil {
		w.Stop()
	}
	stop()
	<-reaperDone

	logger.Info("Graceful shutdown complete")
	return nil
}

func newCRM(cfg *internal.Config, logger *slog.Logger) (crm.Client, error) {
	if cfg.CRMProvider == "servicetitan" {
		return servicetitan.New(servicetitan.Config{
			TenantID:       cfg.ServiceTitanTenantID,
			AppKey:         cfg.ServiceTitanAppKey,
			ClientID:       cfg.ServiceTitanClientID,
			ClientSecret:   cfg.ServiceTitanSecret,
			AuthURL:        cfg.ServiceTitanAuthURL,
			APIBaseURL:     cfg.ServiceTitanAPIURL,
			RequestTimeout: cfg.ServiceTitanTimeout,
			BusinessUnitID: cfg.ServiceTitanBusinessID,
			JobTypeID:      cfg.ServiceTitanJobTypeID,
			CampaignID:     cfg.ServiceTitanCampaignID,
		}, logger)
	}

	client := crmmock.New(logger)
	client.Seed()
	logger.Warn("Using the in-memory CRM with seed data")
	return client, nil
}

func newSMSSender(cfg *internal.Config, logger *slog.Logger) (sms.Sender, error) {
	if cfg.SMSProvider == "twilio" {
		return sms.NewTwilioSender(sms.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		}, logger)
	}
	return sms.NewLogSender(logger), nil
}

func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == storage.ProviderR2 {
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Endpoint:        cfg.R2Endpoint,
		}, logger)
	}
	return storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// newLimiters shares limits across instances when Redis is available.
func newLimiters(ctx context.Context, cfg *internal.Config, client *redis.Client) (verify, login middleware.Limiter) {
	if client != nil {
		return middleware.NewRedisRateLimiter(client, "plumbline:ratelimit:verify", cfg.VerifyRateLimit, cfg.VerifyRateWindow),
			middleware.NewRedisRateLimiter(client, "plumbline:ratelimit:login", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}
	return middleware.NewRateLimiter(ctx, cfg.VerifyRateLimit, cfg.VerifyRateWindow),
		middleware.NewRateLimiter(ctx, cfg.LoginRateLimit, cfg.LoginRateWindow)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
