// Package main provides the main entry point for the LeadForge lead capture backend
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/leadforge/leadforge/app/handlers"
	"github.com/leadforge/leadforge/app/middleware"
	"github.com/leadforge/leadforge/app/router"
	"github.com/leadforge/leadforge/app/services"
	businessflow "github.com/leadforge/leadforge/business_flow"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/ratelimit"
	"github.com/leadforge/leadforge/repository"
	"github.com/leadforge/leadforge/utils"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting LeadForge application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers after the server stops accepting requests so
	// in-flight handlers can still enqueue abuse events.
	for _, fn := range app.stopFuncs {
		fn()
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeSMSService creates the SMS service based on configuration
func initializeSMSService(cfg *config.ProductionConfig) services.SMSService {
	if cfg.SMS.ProviderDomain == "mock" {
		return services.NewMockSMSService()
	}
	return services.NewSMSService(&cfg.SMS)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	verificationRepo := repository.NewPhoneVerificationRepository(db)
	tokenRepo := repository.NewRetrievalTokenRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	eventRepo := repository.NewSuspiciousEventRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	if err := ensureBootstrapAdmin(db, adminRepo, cfg); err != nil {
		return nil, err
	}

	// Initialize services
	smsService := initializeSMSService(cfg)
	abuseLogger := services.NewAbuseLogger(eventRepo, &cfg.Logging)
	stopFuncs = append(stopFuncs, abuseLogger.Close)

	calendarService := services.NewCalendarService(&cfg.Booking)

	captchaSvc, err := services.NewCaptchaServiceRotate(2*time.Minute, 15, 300)
	if err != nil {
		return nil, err
	}

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	leadFlow := businessflow.NewLeadFlow(
		leadRepo,
		verificationRepo,
		tokenRepo,
		smsService,
		abuseLogger,
		db,
	)

	otpFlow := businessflow.NewOTPFlow(
		leadRepo,
		verificationRepo,
		smsService,
		abuseLogger,
		rc,
		&cfg.Cache,
		db,
	)

	bookingFlow := businessflow.NewBookingFlow(
		leadRepo,
		bookingRepo,
		calendarService,
		&cfg.Booking,
		db,
	)

	adminFlow := businessflow.NewAdminFlow(
		adminRepo,
		leadRepo,
		eventRepo,
		tokenService,
		captchaSvc,
	)

	// Initialize handlers
	leadHandler := handlers.NewLeadHandler(leadFlow)
	otpHandler := handlers.NewOTPHandler(otpFlow)
	bookingHandler := handlers.NewBookingHandler(bookingFlow)
	adminHandler := handlers.NewAdminHandler(adminFlow)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	var formLimiter ratelimit.Limiter
	if rc != nil {
		formLimiter = ratelimit.NewRedisSlidingWindowLimiter(rc, cfg.Cache.RedisPrefix, cfg.Security.FormRateLimit, cfg.Security.RateLimitWindow)
	} else {
		formLimiter = ratelimit.NewSlidingWindowLimiter(cfg.Security.FormRateLimit, cfg.Security.RateLimitWindow)
	}
	formRateLimit := middleware.NewRateLimitMiddleware(formLimiter, abuseLogger)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		leadHandler,
		otpHandler,
		bookingHandler,
		adminHandler,
		authMiddleware,
		formRateLimit,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureBootstrapAdmin creates the configured dashboard admin on first boot
func ensureBootstrapAdmin(db *gorm.DB, adminRepo repository.AdminRepository, cfg *config.ProductionConfig) error {
	if cfg.Admin.BootstrapUsername == "" || cfg.Admin.BootstrapPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := adminRepo.ByUsername(ctx, cfg.Admin.BootstrapUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.BootstrapPassword), cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	admin := &models.Admin{
		Username:     cfg.Admin.BootstrapUsername,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	if err := adminRepo.Save(ctx, admin); err != nil {
		return err
	}

	log.Printf("Bootstrap admin %q created", cfg.Admin.BootstrapUsername)
	return nil
}
