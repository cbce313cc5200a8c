package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sheet2pdf/internal/api"
	"sheet2pdf/internal/config"
	"sheet2pdf/internal/email"
	"sheet2pdf/internal/hub"
	"sheet2pdf/internal/layout"
	"sheet2pdf/internal/render"
	"sheet2pdf/internal/storage"
	"sheet2pdf/internal/store"
	"sheet2pdf/internal/worker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 0. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting sheet2pdf server", "env", cfg.AppEnv)

	spacing, err := layout.ParseSpacingMode(cfg.SpacingMode)
	if err != nil {
		slog.Error("Invalid SPACING_MODE", "error", err)
		os.Exit(1)
	}

	// 1. Storage
	var provider storage.Provider
	switch cfg.StorageType {
	case "s3":
		client := storage.NewS3Client(storage.S3Options{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3PathStyle,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		provider = storage.NewS3Provider(client, cfg.S3Bucket)
		slog.Info("Using S3 storage", "bucket", cfg.S3Bucket, "region", cfg.AWSRegion)
	default:
		provider = storage.NewLocalProvider(cfg.LocalStoragePath)
		slog.Info("Using local storage", "path", cfg.LocalStoragePath)
	}

	// 2. Job history (optional)
	var history api.History
	var recorder worker.Recorder
	if cfg.DBDriver != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		st, err := store.Connect(connectCtx, cfg.DBDriver, cfg.DBDSN)
		cancel()
		if err != nil {
			slog.Error("Failed to initialize store", "driver", cfg.DBDriver, "error", err)
			os.Exit(1)
		}
		defer st.Close()
		history, recorder = st, st
		slog.Info("Job history connected", "driver", cfg.DBDriver)
	}

	// 3. Email
	var emailer email.Sender
	if cfg.SMTPHost != "" {
		emailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		emailer = email.NewLogSender()
	}

	// 4. Hub & workers
	h := hub.NewHub()
	pool := worker.NewPool(worker.Options{
		Workers:       cfg.WorkerCount,
		MaxConcurrent: cfg.MaxConcurrentConversions,
		Storage:       provider,
		Emailer:       emailer,
		Recorder:      recorder,
		Notifier:      h,
		Gzip:          cfg.Compression,
		AttachFile:    cfg.AttachFile,
		Render: render.Options{
			Spacing: spacing,
			Font:    cfg.FontFamily,
			Logger:  logger,
		},
	})
	pool.Start()

	// 5. Routes & middleware
	handler := &api.Handler{
		Pool:           pool,
		Storage:        provider,
		History:        history,
		Hub:            h,
		MaxUploadBytes: cfg.MaxUploadBytes,
		JobTimeout:     cfg.DefaultTimeout,
	}
	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: api.NewRouter(handler, api.RouterConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			Env:            cfg.AppEnv,
			APISecret:      cfg.APISecret,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.APISecret == "" {
		slog.Warn("API_SECRET not set, request signatures are not checked")
	}

	go func() {
		slog.Info("Server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	pool.Stop()
}
