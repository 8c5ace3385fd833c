// Defence decision server
// Serves the REST API, the simulation stream and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkalvans/skyfence/internal/auth"
	"github.com/mkalvans/skyfence/internal/config"
	"github.com/mkalvans/skyfence/internal/db"
	"github.com/mkalvans/skyfence/internal/metrics"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.String("port", "", "HTTP server port (overrides config)")
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	router       *chi.Mux
	database     *db.DB
	authSvc      *auth.Service
	userRepo     *db.UserRepository
	catalogRepo  *db.CatalogRepository
	decisionRepo *db.DecisionRepository
	cfg          *config.Config
}

func main() {
	flag.Parse()

	log.Println("Starting skyfence defence server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	database, err := db.ReconnectWithRetry(cfg.Database, 5, time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.InitSchema(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	cancel()

	authSvc := auth.NewService(auth.Config{
		JWTSecret:     getEnvOrDefault("SKYFENCE_JWT_SECRET", jwtSecretFromConfig(cfg)),
		TokenDuration: time.Duration(cfg.Auth.TokenDurationHours) * time.Hour,
	})

	srv := &Server{
		router:       chi.NewRouter(),
		database:     database,
		authSvc:      authSvc,
		userRepo:     db.NewUserRepository(database),
		catalogRepo:  db.NewCatalogRepository(database),
		decisionRepo: db.NewDecisionRepository(database),
		cfg:          cfg,
	}

	if err := srv.ensureDefaultAdmin(); err != nil {
		log.Printf("Warning: could not create default admin: %v", err)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	// Audit rows are kept for a bounded review window only.
	go srv.cleanupLoop()

	srv.setupRoutes()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming endpoint owns its write deadlines
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", s.handleLogin)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/catalog", s.handleGetCatalog)
			r.Get("/decisions", s.handleGetDecisions)
			r.Get("/system/status", s.handleGetSystemStatus)

			// Engagement routes additionally require the operator role.
			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleOperator))

				r.Post("/intercept", s.handleIntercept)
				r.Post("/simulate", s.handleSimulate)
				r.Get("/stream", s.handleStream)
			})
		})
	})
}

// authMiddleware validates the bearer token (or, for the websocket stream,
// a token query parameter, since browsers cannot set headers on websocket
// dials) and stashes the operator identity in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		} else if qp := r.URL.Query().Get("token"); qp != "" {
			token = qp
		}

		if token == "" {
			http.Error(w, "Missing authorization", http.StatusUnauthorized)
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "user_id", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)
		ctx = context.WithValue(ctx, "role", claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route on the authenticated operator's role. It must
// run after authMiddleware, which stashes the role in the request context.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole, _ := r.Context().Value("role").(string)
			if !auth.HasRole(userRole, role) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ensureDefaultAdmin bootstraps the first operator account (admin/admin)
// when the users table is empty.
func (s *Server) ensureDefaultAdmin() error {
	hash, err := s.authSvc.HashPassword(getEnvOrDefault("SKYFENCE_ADMIN_PASSWORD", "admin"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.userRepo.EnsureDefaultAdmin(ctx, hash)
}

// cleanupLoop periodically trims the decision audit table.
func (s *Server) cleanupLoop() {
	retention := time.Duration(s.cfg.Defence.AuditRetentionHours) * time.Hour
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := s.database.CleanupOldDecisions(ctx, retention); err != nil {
			log.Printf("Audit cleanup failed: %v", err)
		}
		cancel()
	}
}

func jwtSecretFromConfig(cfg *config.Config) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}
	return "dev-secret-change-in-production"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
