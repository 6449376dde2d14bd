package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom-access-backend/config"
	"classroom-access-backend/internal/access"
	"classroom-access-backend/internal/api"
	"classroom-access-backend/internal/auth"
	"classroom-access-backend/internal/cleanup"
	"classroom-access-backend/internal/db"
	"classroom-access-backend/internal/debounce"
	"classroom-access-backend/internal/schedule"
	"classroom-access-backend/internal/settings"
	"classroom-access-backend/internal/store"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a signed token for the named reader device and exit")
	tokenRoom := flag.Int64("room", 0, "room the issued token is bound to (0 for any room)")
	tokenTTL := flag.Duration("ttl", 365*24*time.Hour, "lifetime of the issued token")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "accessd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if *issueToken != "" {
		if cfg.Auth.DeviceSigningKey == "" {
			logger.Fatalf("auth.device_signing_key must be set to issue device tokens")
		}
		token, exp, err := auth.Issue(*issueToken, *tokenRoom, cfg.Auth.Issuer, cfg.Auth.DeviceSigningKey, *tokenTTL)
		if err != nil {
			logger.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		logger.Printf("token for %s expires %s", *issueToken, exp.Format(time.RFC3339))
		return
	}
	if cfg.Auth.DeviceSigningKey == "" {
		logger.Println("Warning: auth.device_signing_key is not set; scan endpoints accept unauthenticated requests")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	terms := settings.NewProvider(appStore, time.Duration(cfg.Attendance.TermCacheSeconds)*time.Second)

	debouncer, err := debounce.New(cfg.Debounce)
	if err != nil {
		logger.Fatalf("failed to configure scan debounce: %v", err)
	}
	logger.Printf("scan debounce: %s, window %s", cfg.Debounce.Backend, cfg.Debounce.Window)

	svc := access.NewService(appStore, terms, access.Options{
		Windows: schedule.Windows{
			InstructorEarly: cfg.Attendance.InstructorEarly(),
			StudentEarly:    cfg.Attendance.EarlyWindow(),
		},
		LateTolerance: cfg.Attendance.LateTolerance(),
		Location:      cfg.Attendance.Location,
		Debouncer:     debouncer,
	})

	// Run the early arrival cleanup in the background
	worker := cleanup.NewWorker(svc, cfg.Cleanup.Interval, cfg.Cleanup.Enabled)
	go worker.Run(ctx)

	health := map[string]api.HealthCheck{
		"db": func(ctx context.Context) bool {
			sqlDB, err := gormDB.DB()
			return err == nil && sqlDB.PingContext(ctx) == nil
		},
	}
	if r, ok := debouncer.(*debounce.Redis); ok {
		health["redis"] = r.Healthy
	}

	router := api.NewRouter(svc, api.RouterOptions{
		RateLimitPerSec:  cfg.Server.RateLimitPerSec,
		RateLimitBurst:   cfg.Server.RateLimitBurst,
		CacheTTL:         time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		DeviceSigningKey: cfg.Auth.DeviceSigningKey,
		Issuer:           cfg.Auth.Issuer,
		Health:           health,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
