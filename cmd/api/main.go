package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sitemat/sitematgo/internal/config"
	"github.com/sitemat/sitematgo/internal/database"
	"github.com/sitemat/sitematgo/internal/engine"
	"github.com/sitemat/sitematgo/internal/handlers"
	"github.com/sitemat/sitematgo/internal/models"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.Project{},
		&models.Activity{},
		&models.ActivityMaterial{},
		&models.ActivityDependency{},
		&models.Supplier{},
		&models.Material{},
		&models.MaterialBatch{},
		&models.InventoryMovement{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.Alert{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Set up engine and HTTP router
	eng := engine.New(db)
	router := handlers.NewRouter(db, eng)

	// 5. Background alert regeneration
	if cfg.Alerts.RegenerateMinutes > 0 {
		regenEvery := time.Duration(cfg.Alerts.RegenerateMinutes) * time.Minute
		go func() {
			ticker := time.NewTicker(regenEvery)
			defer ticker.Stop()
			for range ticker.C {
				created, err := eng.RegenerateGlobalAlerts()
				if err != nil {
					log.Printf("Alert worker error: %v", err)
					continue
				}
				if created > 0 {
					log.Printf("🔔 Alert worker: %d global alerts pending", created)
				}
			}
		}()
		log.Printf("✅ Alert worker started (every %s)", regenEvery)
	}

	// 6. Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
