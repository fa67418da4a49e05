package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/angola-gov/vigilancia/internal/alert"
	"github.com/angola-gov/vigilancia/internal/audit"
	authapi "github.com/angola-gov/vigilancia/internal/auth"
	caseapi "github.com/angola-gov/vigilancia/internal/case/api"
	caseinfra "github.com/angola-gov/vigilancia/internal/case/infrastructure"
	caseservice "github.com/angola-gov/vigilancia/internal/case/service"
	"github.com/angola-gov/vigilancia/internal/content"
	"github.com/angola-gov/vigilancia/internal/disease"
	"github.com/angola-gov/vigilancia/internal/report"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/cache"
	"github.com/angola-gov/vigilancia/internal/shared/config"
	"github.com/angola-gov/vigilancia/internal/shared/database"
	"github.com/angola-gov/vigilancia/internal/shared/logging"
	"github.com/angola-gov/vigilancia/internal/shared/metrics"
	secmiddleware "github.com/angola-gov/vigilancia/internal/shared/middleware"
	"github.com/angola-gov/vigilancia/internal/stats"
	"github.com/angola-gov/vigilancia/internal/user"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *database.DB
	Cache  cache.Store
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app := &App{Config: cfg, Logger: logger}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("database not available", zap.Error(err))
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Redis backs the aggregate cache; without it the process still serves
	// traffic from an in-process store.
	redisStore := cache.NewRedisStore(cfg.Redis, logger)
	if err := redisStore.Ping(ctx); err != nil {
		logger.Warn("redis not available, using in-process cache", zap.Error(err))
		app.Cache = cache.NewMemoryStore()
	} else {
		app.Cache = redisStore
		defer redisStore.Close()
	}

	recorder := audit.NewRecorder(logger, cfg.Audit.BufferSize)
	defer recorder.Close()

	// Repositories and services
	userRepo := user.NewRepository(db.Pool)
	diseaseRepo := disease.NewRepository(db.Pool, app.Cache, cfg.Cache.ReferenceTTL)
	alertRepo := alert.NewRepository(db.Pool, app.Cache, cfg.Cache.ReferenceTTL)
	contentRepo := content.NewRepository(db.Pool, app.Cache, cfg.Cache.ReferenceTTL)
	caseRepo := caseinfra.NewPostgresRepository(db.Pool)

	caseSvc := caseservice.NewService(caseRepo, diseaseRepo, app.Cache, recorder, logger)
	statsSvc := stats.NewService(caseRepo, app.Cache, cfg.Cache.StatsTTL, diseaseRepo, alertRepo)
	exporter := report.NewExporter(caseRepo)

	// Handlers
	authHandler := authapi.NewHandler(cfg.Auth, userRepo, recorder)
	userHandler := user.NewHandler(userRepo, recorder)
	diseaseHandler := disease.NewHandler(diseaseRepo, recorder)
	alertHandler := alert.NewHandler(alertRepo, recorder)
	contentHandler := content.NewHandler(contentRepo, recorder)
	caseHandler := caseapi.NewHandler(caseSvc)
	statsHandler := stats.NewHandler(statsSvc)
	reportHandler := report.NewHandler(exporter)

	loginLimiter := secmiddleware.NewIPRateLimiter(cfg.Auth.LoginRatePerMinute)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Authentication, throttled per client IP
		r.Group(func(r chi.Router) {
			r.Use(loginLimiter.Middleware)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Public surface: verification, alert board, catalogue, education
		r.Get("/public/verify/{code}", caseHandler.PublicVerify)
		r.Get("/public/alerts", alertHandler.ListActive)
		r.Get("/public/diseases", diseaseHandler.ListActive)
		r.Get("/public/diseases/{diseaseID}", diseaseHandler.Show)
		r.Mount("/public/content", contentHandler.PublicRoutes())

		// Authenticated surface
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth))

			r.Get("/auth/me", authHandler.Me)

			// Case registration and statistics need a clinical role
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles(auth.RoleAdmin, auth.RoleHealthProfessional))
				r.Mount("/cases", caseHandler.Routes())
				r.Mount("/stats", statsHandler.Routes())
				r.Mount("/reports", reportHandler.Routes())
			})

			// Administration
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles(auth.RoleAdmin))
				r.Mount("/admin/users", userHandler.AdminRoutes())
				r.Mount("/admin/diseases", diseaseHandler.AdminRoutes())
				r.Mount("/admin/alerts", alertHandler.AdminRoutes())
				r.Mount("/admin/content", contentHandler.AdminRoutes())
			})
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	logger.Info("vigilancia epidemiologica started",
		zap.String("env", cfg.Server.Env),
		zap.Int("port", cfg.Server.Port))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	<-done
	logger.Info("server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Vigilância Epidemiológica",
		"version": "1.0.0",
		"docs":    "/api/v1",
	})
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if redis, ok := app.Cache.(*cache.RedisStore); ok {
			if err := redis.Ping(r.Context()); err != nil {
				checks["redis"] = "not ready: " + err.Error()
			} else {
				checks["redis"] = "ready"
			}
		} else {
			checks["redis"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
