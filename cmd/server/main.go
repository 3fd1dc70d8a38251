package main // Entry point package

import (
	"context"      // cancellation for startup and shutdown
	"database/sql" // handle returned by the MySQL store
	"errors"       // errors.Is for expected shutdown errors
	"log"          // Logging library
	"log/slog"     // structured logger handed to the service layer
	"net/http"     // http.ErrServerClosed
	"os"           // process signals and stdout
	"os/signal"    // SIGINT/SIGTERM handling
	"syscall"      // SIGTERM
	"time"         // timeouts

	"github.com/joho/godotenv"                      // optional .env loading
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request id, access log and recovery

	"github.com/iliyamo/runclub-api/internal/config"     // Internal config loader
	"github.com/iliyamo/runclub-api/internal/database"   // MySQL connection
	"github.com/iliyamo/runclub-api/internal/handler"    // HTTP handlers and error handler
	"github.com/iliyamo/runclub-api/internal/middleware" // rate limiter
	"github.com/iliyamo/runclub-api/internal/queue"      // registration events
	"github.com/iliyamo/runclub-api/internal/repository" // credential store implementations
	"github.com/iliyamo/runclub-api/internal/router"     // Internal router setup
	"github.com/iliyamo/runclub-api/internal/service"    // auth service and session manager
	"github.com/iliyamo/runclub-api/internal/utils"      // token issuer
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("dotenv: %v", err)
	}
	cfg := config.Load() // Load environment config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := utils.NewIssuer(utils.IssuerConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.AccessTTL,
	})
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	users, roles, db := openStore(ctx, cfg)
	if db != nil {
		defer db.Close()
	}

	var notifier service.Notifier
	if cfg.BrokerURL != "" {
		notifier = queue.NewPublisher(cfg.BrokerURL)
		consumer := queue.NewRegistrationConsumer(cfg.BrokerURL, cfg.LogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("registration consumer stopped: %v", err)
			}
		}()
	}

	sessions := service.NewSessionManager(users, issuer, cfg.RefreshTTL, logger)
	svc := service.NewAuthService(users, roles, sessions, service.Options{
		BcryptCost: cfg.BcryptCost,
		Notifier:   notifier,
		Logger:     logger,
	})

	// The role catalog must exist before the first registration.
	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := svc.EnsureRoleCatalog(seedCtx); err != nil {
		cancel()
		log.Fatalf("role catalog: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(svc), issuer, limiter)

	// Metrics get their own listener so they stay off the public port.
	m := echo.New()
	m.HideBanner = true
	m.HidePort = true
	m.Use(echomw.Recover())
	router.RegisterMetrics(m)
	metricsAddr := ":" + cfg.MetricsPort
	go func() {
		if err := m.Start(metricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port // Address string with port
	// Print startup info
	log.Printf("listening on %s, metrics on %s (env=%s)", addr, metricsAddr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := m.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics shutdown: %v", err)
	}
}

// openStore picks the credential store named by STORE_DRIVER.  The
// returned *sql.DB is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.Config) (service.UserStore, service.RoleStore, *sql.DB) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Printf("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		return mem, mem.RoleCatalog(), nil
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	return repository.NewUserRepo(db), repository.NewRoleRepo(db), db
}
