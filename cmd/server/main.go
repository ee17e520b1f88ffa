package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diewo77/formfill/internal/config"
	"github.com/diewo77/formfill/internal/db"
	"github.com/diewo77/formfill/internal/handlers"
	"github.com/diewo77/formfill/internal/services"
	"github.com/diewo77/formfill/internal/storage"
	"github.com/diewo77/formfill/internal/store"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	dbConn, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.DatabaseDSN); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeding completed successfully")
		return
	}

	if err := db.Migrate(dbConn, cfg.DatabaseDSN); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Demo fixtures only when explicitly requested
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	files, err := storage.New(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	st := store.New(dbConn)
	mappingSvc := services.NewMappingService(st)
	generateSvc := services.NewGenerateService(st, files)

	app := NewApp(
		handlers.NewCompanyHandler(st),
		handlers.NewDatapointHandler(st),
		handlers.NewTemplateHandler(st, files, mappingSvc, generateSvc),
		files,
	)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     withLogging(app),
		ReadTimeout: 30 * time.Second,
		// generation renders N documents sequentially; give slow batches room
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (env=%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
