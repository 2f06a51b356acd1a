package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grantnilsson/ShowTracker/internal/config"
	"github.com/grantnilsson/ShowTracker/internal/database"
	"github.com/grantnilsson/ShowTracker/internal/handlers"
	"github.com/grantnilsson/ShowTracker/internal/middleware"
	"github.com/grantnilsson/ShowTracker/internal/services"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "export":
			runTransfer("export")
			return
		case "import":
			runTransfer("import")
			return
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFlags := log.LstdFlags
	if cfg.IsDevelopment() {
		logFlags |= log.Lshortfile
	}
	logger := log.New(os.Stdout, "[showtracker] ", logFlags)
	logger.Printf("Starting ShowTracker server in %s mode", cfg.Server.Env)

	// Initialize database connection
	db, err := database.New(database.Config{
		URL: cfg.Database.URL,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := database.NewRedisClient(database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       0,
		TLS:      cfg.Redis.TLS,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	showService := services.NewShowService(db.Pool)
	cacheService := services.NewCacheService(redisClient.Client)
	library := services.NewLibraryService(showService, cacheService, logger)
	catalogService := services.NewCatalogService(services.CatalogConfig{
		APIKey:       cfg.TMDB.APIKey,
		BaseURL:      cfg.TMDB.BaseURL,
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
	})

	// Initialize middleware
	authGate := middleware.NewAuthGate(cfg.Auth.Token, cfg.IsProduction())
	if !authGate.Enabled() {
		logger.Println("WARNING: AUTH_TOKEN not set, auth gate disabled")
	}

	// 100 req/min in production; the limiter is a no-op elsewhere
	rateLimiter := middleware.NewRateLimiter(redisClient.Client, 100, time.Minute, cfg.IsProduction())

	// Initialize handlers
	showHandler := handlers.NewShowHandler(library, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogService, logger)

	mux := http.NewServeMux()

	api := func(h http.HandlerFunc) http.Handler {
		return rateLimiter.Limit(authGate.RequireAuthAPI(h))
	}

	// Watchlist API routes
	mux.Handle("GET /api/shows", api(showHandler.List))
	mux.Handle("POST /api/shows", api(showHandler.Create))
	mux.Handle("GET /api/shows/{id}", api(showHandler.Get))
	mux.Handle("PUT /api/shows/{id}", api(showHandler.Update))
	mux.Handle("DELETE /api/shows/{id}", api(showHandler.Delete))
	mux.Handle("POST /api/shows/{id}/comments", api(showHandler.AddComment))
	mux.Handle("POST /api/migrate", api(showHandler.Migrate))

	// Catalog API routes
	mux.Handle("GET /api/catalog/search", api(catalogHandler.Search))
	mux.Handle("GET /api/catalog/discover", api(catalogHandler.Discover))
	mux.Handle("GET /api/catalog/plot", api(catalogHandler.PlotSearch))
	mux.Handle("GET /api/catalog/rating", api(catalogHandler.RatingSearch))
	mux.Handle("GET /api/catalog/movie/{id}", api(catalogHandler.GetMovie))
	mux.Handle("GET /api/catalog/tv/{id}", api(catalogHandler.GetTV))
	mux.Handle("GET /api/catalog/genres", api(catalogHandler.Genres))

	// Login sets the static auth cookie when the right token is posted
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
			return
		}
		if !authGate.Enabled() || subtle.ConstantTimeCompare([]byte(input.Token), []byte(cfg.Auth.Token)) != 1 {
			http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
			return
		}
		authGate.SetAuthCookie(w)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true}`)
	})

	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		authGate.ClearAuthCookie(w)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true}`)
	})

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		dbErr := db.Health(r.Context())
		redisErr := redisClient.Health(r.Context())

		if dbErr != nil || redisErr != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			dbStatus := "up"
			if dbErr != nil {
				dbStatus = "down"
			}
			redisStatus := "up"
			if redisErr != nil {
				redisStatus = "down"
			}
			fmt.Fprintf(w, `{"status":"unhealthy","database":"%s","redis":"%s"}`, dbStatus, redisStatus)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","database":"up","redis":"up"}`)
	})

	// Wrap with logging middleware
	handler := middleware.Logger(logger)(mux)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Println("Server exited")
}

// runMigrations runs database migrations
func runMigrations() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(database.Config{
		URL: cfg.Database.URL,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool)

	if err := migrator.Up(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")
}

// runTransfer exports the collection to, or imports it from, a JSON file.
// The path defaults to data-export.json in the working directory.
func runTransfer(direction string) {
	path := "data-export.json"
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(database.Config{
		URL: cfg.Database.URL,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := log.New(os.Stdout, "[showtracker] ", log.LstdFlags)
	transfer := services.NewTransferService(services.NewShowService(db.Pool), logger)

	ctx := context.Background()
	switch direction {
	case "export":
		doc, err := transfer.Export(ctx, path)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		log.Printf("Exported %d shows", len(doc.Shows))
	case "import":
		summary, err := transfer.Import(ctx, path)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		log.Printf("Imported %d, skipped %d, failed %d", summary.Imported, summary.Skipped, summary.Failed)
	}
}
