/*
Package main is the entry point for the Guruvani session server.

It is responsible for loading configuration, initializing the global logging
system, connecting Postgres and the recording archive, wiring the media
provider client, starting the session manager, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth
server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guruvani/internal/app/db"
	"guruvani/internal/app/egress"
	"guruvani/internal/app/ledger"
	"guruvani/internal/app/provider"
	"guruvani/internal/app/session"
	"guruvani/internal/app/storage"
	"guruvani/internal/app/token"
	"guruvani/internal/app/trial"
	"guruvani/internal/configs"
	"guruvani/internal/handler"
	"guruvani/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("idle_timeout", cfg.IdleTimeout).
		Dur("trial_budget", cfg.TrialBudget).
		Bool("egress_enabled", cfg.EgressEnabled).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect Postgres and run embedded migrations
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()
	queries := db.NewQueries(pool)

	// Recording archive (S3-compatible)
	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	// Media provider wiring: credential issuer, API client, egress service
	issuer := token.NewIssuer(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	providerClient := provider.NewClient(cfg.LiveKitURL, issuer)

	egressService := egress.NewService(egress.Config{
		Enabled:    cfg.EgressEnabled,
		Bucket:     cfg.S3BucketName,
		Endpoint:   cfg.S3Endpoint,
		AccessKey:  cfg.S3AccessKeyID,
		SecretKey:  cfg.S3SecretAccessKey,
		PathPrefix: cfg.EgressPathPrefix,
		Basename:   cfg.EgressBasename,
		AudioOnly:  cfg.EgressAudioOnly,
	}, providerClient, queries)

	// External coin ledger
	ledgerClient := ledger.NewClient(cfg.CoinServiceURL)

	// Free-trial clock
	trialService := trial.NewService(queries, cfg.TrialBudget)

	// Session manager
	manager := session.NewManager(cfg.IdleTimeout, session.Deps{
		Rooms:    providerClient,
		Recorder: egressService,
		Debiter:  ledgerClient,
	})

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Config:         cfg,
		Sessions:       manager,
		Issuer:         issuer,
		Egress:         egressService,
		Ledger:         ledgerClient,
		Trial:          trialService,
		StorageService: storageService,
		DB:             queries,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Guruvani Session Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
