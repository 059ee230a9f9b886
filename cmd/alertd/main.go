package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/crypto/bcrypt"

	"alert-center-backend/config"
	"alert-center-backend/internal/api"
	"alert-center-backend/internal/db"
	"alert-center-backend/internal/dispatch"
	"alert-center-backend/internal/model"
	"alert-center-backend/internal/mw"
	"alert-center-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "alertd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret must be configured.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	if err := seedAdmin(ctx, appStore, &cfg.Auth); err != nil {
		logger.Fatalf("failed to seed admin account: %v", err)
	}

	dispatcher := dispatch.NewDispatcher(cfg.WorkerPool.Size, appStore, &webpushOptions)
	dispatcher.Start(ctx)
	logger.Printf("dispatch worker pool started with %d workers", cfg.WorkerPool.Size)

	issuer := mw.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	router := api.NewRouter(cfg, appStore, dispatcher, &webpushOptions, issuer)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// seedAdmin makes sure the configured admin account exists so a fresh
// deployment is usable without manual database edits.
func seedAdmin(ctx context.Context, s store.Store, cfg *config.AuthConfig) error {
	if cfg.AdminPhone == "" || cfg.AdminPassword == "" {
		log.Println("No admin account configured; skipping seed")
		return nil
	}

	if _, err := s.FindRecipient(ctx, cfg.AdminPhone); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	name := cfg.AdminName
	if name == "" {
		name = "Admin"
	}
	admin := &model.Recipient{
		Phone:        cfg.AdminPhone,
		Name:         name,
		PasswordHash: string(hash),
		IsActive:     true,
		IsAdmin:      true,
	}
	if err := s.CreateRecipient(ctx, admin); err != nil {
		return err
	}
	log.Printf("Seeded admin account %s", cfg.AdminPhone)
	return nil
}
