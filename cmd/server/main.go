package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casbin/casbin/v2/persist"
	"github.com/spf13/pflag"

	"training-app/internal/auth"
	"training-app/internal/cache"
	"training-app/internal/config"
	"training-app/internal/content"
	"training-app/internal/data"
	"training-app/internal/handler"
	"training-app/internal/logger"
	"training-app/internal/service"
	"training-app/internal/upload"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "path to a config file (default: search ./config.yml, ./configs, /etc/training-app)")
	pflag.Parse()

	// --- Configuration Loading ---
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Pre-flight Checks ---
	if cfg.Auth.TokenSecret == "" || cfg.Auth.TokenSecret == config.PlaceholderSecret {
		log.Fatal(errors.New("token secret not set"), "Please set a secure TRAINING_AUTH_TOKEN_SECRET environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(db, cfg.DB.Driver, cfg.DB.Migrations); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	var adapter persist.Adapter
	if cfg.Auth.PolicyStore == "db" {
		adapter = auth.NewPolicyAdapter(db)
	}
	enforcer, err := auth.NewEnforcer(adapter)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	if err := auth.SeedPolicies(enforcer, log); err != nil {
		log.Fatal(err, "Failed to seed policies")
	}

	users := data.NewUserRepository(db)
	tokens := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	authService, err := auth.NewService(users, tokens, enforcer, cfg.Auth.BcryptCost, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize credential service")
	}

	ctx := context.Background()
	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			log.Fatal(err, "Failed to create admin account")
		}
	} else if n, err := users.Count(ctx); err == nil && n == 0 {
		log.Warn("No users exist and no admin account is configured; nobody can sign in.")
	}
	log.Info("Auth components initialized and policies seeded.")

	// --- Cache Initialization ---
	sectionCache, err := newCache(ctx, cfg.Cache, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer sectionCache.Close()

	// Background work stops when the server shuts down.
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if sqliteCache, ok := sectionCache.(*cache.Cache); ok {
		// Redis expires keys itself; the SQLite table needs sweeping.
		go sqliteCache.RunJanitor(bgCtx, cfg.Cache.TTL, log)
	}

	// --- Upload Store ---
	store, err := newUploadStore(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize upload store")
	}

	// --- Dependency Injection and Handler Initialization ---
	sections := data.NewSectionRepository(db)
	elements := data.NewElementRepository(db)
	sectionService := service.NewSectionService(sections, elements, store, authService, sectionCache, log)
	elementService := service.NewElementService(sections, elements, store, authService, content.NewSanitizer(), log)

	if n, err := sectionService.ResumeDeletes(ctx); err != nil {
		log.Error(err, "Failed to finish interrupted deletes")
	} else if n > 0 {
		log.Info(fmt.Sprintf("Resumed %d interrupted deletes", n))
	}

	// --- Router Setup ---
	router := handler.NewRouter(handler.Router{
		Auth:       handler.NewAuthHandler(authService),
		Sections:   handler.NewSectionHandler(sectionService),
		Elements:   handler.NewElementHandler(elementService, cfg.Upload.MaxSize, log),
		Verifier:   authService,
		DB:         db,
		UploadPath: store.PublicPath(),
		Uploads:    store.Handler(),
		Log:        log,
	})

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	stopBackground()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}

// closingCache is what the services need from a cache, plus Close.
type closingCache interface {
	service.Cache
	Close() error
}

func newCache(ctx context.Context, cfg config.CacheConfig, log logger.Logger) (closingCache, error) {
	switch cfg.Driver {
	case "redis":
		log.Info("Initializing Redis cache...")
		return cache.NewRedis(ctx, cfg)
	case "", "sqlite":
		log.Info("Initializing SQLite cache...")
		return cache.New(cfg)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// servingStore is an upload store that also serves its files.
type servingStore interface {
	upload.Store
	PublicPath() string
	Handler() http.Handler
}

func newUploadStore(ctx context.Context, cfg *config.Config, log logger.Logger) (servingStore, error) {
	switch cfg.Upload.Backend {
	case "s3":
		log.Info("Using object storage for uploads at " + cfg.Upload.S3.Endpoint)
		return upload.NewObjectStore(ctx, cfg.Upload, cfg.Server.BaseURL, log)
	case "", "disk":
		log.Info("Using local directory for uploads: " + cfg.Upload.Dir)
		return upload.NewDiskStore(cfg.Upload.Dir, cfg.Server.BaseURL, cfg.Upload.PublicPath, cfg.Upload.MaxSize, log)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Upload.Backend)
	}
}
