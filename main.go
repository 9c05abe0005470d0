package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/routes"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(cfg.LogDir); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	utils.RegisterMetrics()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.LogError("Database initialisation failed: %v", err)
		log.Fatal("Database initialisation failed:", err)
	}

	qr, err := services.NewQRProvider(cfg)
	if err != nil {
		log.Fatal("Payment provider:", err)
	}

	notifiers := []services.Notifier{services.NewWhatsAppNotifier(cfg.WhatsApp)}
	if cfg.SMTP.Host != "" {
		notifiers = append(notifiers, services.NewEmailNotifier(cfg.SMTP))
	}
	outbox := services.NewOutbox(db, cfg.Jobs, notifiers...)

	users := services.NewUserService(db, cfg, outbox)
	transactions := services.NewTransactionService(db, cfg, qr, outbox)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create bootstrap admin
	if err := users.EnsureAdmin(ctx); err != nil {
		utils.LogError("Failed to create bootstrap admin: %v", err)
		log.Fatal("Failed to create bootstrap admin:", err)
	}

	router := routes.SetupRouter(routes.Dependencies{
		DB:           db,
		Config:       cfg,
		Users:        users,
		Catalog:      services.NewCatalogService(db, cfg),
		Schedules:    services.NewScheduleService(db, cfg),
		Transactions: transactions,
		Memberships:  services.NewMembershipService(db, cfg),
	})

	scheduler, err := services.NewScheduler(cfg.Jobs, outbox, services.NewExpiryJob(transactions))
	if err != nil {
		log.Fatal("Failed to schedule background jobs:", err)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError("Error starting server: %v", err)
			log.Fatal("Error starting server:", err)
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Server shutdown failed: %v", err)
	}
	scheduler.Stop(shutdownCtx)

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	utils.LogInfo("Server stopped")
}
