package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hairizuan-noorazman/dashboard-watch/artifact"
	"github.com/hairizuan-noorazman/dashboard-watch/browser"
	"github.com/hairizuan-noorazman/dashboard-watch/capture"
	"github.com/hairizuan-noorazman/dashboard-watch/cmd/backend/handlers"
	"github.com/hairizuan-noorazman/dashboard-watch/credential"
	"github.com/hairizuan-noorazman/dashboard-watch/extraction"
	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/hairizuan-noorazman/dashboard-watch/state"
	"github.com/hairizuan-noorazman/dashboard-watch/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capture loop and the HTTP server",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg LogConfig, out io.Writer) logger.Logger {
	return logger.NewLogrusLoggerWithOptions(cfg.Level, cfg.Format, out)
}

func newExtractor(ctx context.Context, cfg ExtractionConfig, log logger.Logger) (*extraction.Extractor, error) {
	client, err := extraction.NewVisionClient(ctx, extraction.ProviderConfig{
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		BedrockRegion: cfg.BedrockRegion,
		GeminiAPIKey:  cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return extraction.NewExtractor(client, log, extraction.WithRequestTimeout(cfg.RequestTimeout)), nil
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := LoadConfig(configFile, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log := newLogger(cfg.Log, os.Stdout)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Initialize blob storage
	blobs, err := storage.NewBlobStorage(ctx, storage.Config{
		Type:            cfg.Storage.Type,
		BaseDir:         cfg.Storage.BaseDir,
		S3Bucket:        cfg.Storage.S3Bucket,
		S3Region:        cfg.Storage.S3Region,
		S3PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info(ctx, "storage initialized", map[string]interface{}{
		"type": cfg.Storage.Type,
	})
	artifacts := artifact.NewStore(blobs, cfg.Storage.DebugRetention, log)

	store := state.NewMemoryStore(state.StatusInitializing)

	credentials, err := credential.NewSource(credential.Config{
		CookieFile: cfg.Credential.CookieFile,
		Token: credential.TokenConfig{
			EnvVar:       cfg.Credential.TokenEnv,
			CookieName:   cfg.Credential.TokenCookieName,
			CookieDomain: cfg.Credential.TokenCookieDomain,
			CookiePath:   cfg.Credential.TokenCookiePath,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to configure credential: %w", err)
	}

	extractor, err := newExtractor(ctx, cfg.Extraction, log)
	if err != nil {
		return err
	}

	loop := capture.NewLoop(capture.Config{
		TargetURL:         cfg.Capture.TargetURL,
		StartDelay:        cfg.Capture.StartDelay,
		NavigationTimeout: cfg.Capture.NavigationTimeout,
		ReadyTimeout:      cfg.Capture.ReadyTimeout,
		RefreshInterval:   cfg.Capture.RefreshInterval,
		ScrollSettle:      cfg.Capture.ScrollSettle,
	}, capture.Dependencies{
		Credentials: credentials,
		Launcher: browser.NewLauncher(browser.Config{
			Headless:     cfg.Capture.Headless,
			WindowWidth:  cfg.Capture.WindowWidth,
			WindowHeight: cfg.Capture.WindowHeight,
			UserAgent:    cfg.Capture.UserAgent,
			ExecPath:     cfg.Capture.ChromePath,
		}, log),
		Dismisser: capture.NewDialogDismisser(cfg.Dialogs.Steps, cfg.Dialogs.WaitTimeout, cfg.Dialogs.Settle, log),
		Prober:    capture.NewReadinessProber(cfg.Capture.ValueSelector, log),
		Extractor: extractor,
		Artifacts: artifacts,
		State:     store,
	}, log)

	// Setup router
	router := handlers.NewRouter(handlers.RouterConfig{
		Version:   Version,
		Data:      handlers.NewDataHandler(store, log),
		Artifacts: handlers.NewArtifactHandler(artifacts, log),
		StaticDir: cfg.Server.StaticDir,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := loop.Run(gctx)
		if err == nil || gctx.Err() != nil {
			return nil
		}
		// The server keeps running so clients can read the fatal status.
		log.Error(gctx, "capture loop stopped", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server", nil)

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info(context.Background(), "server stopped", nil)
	return nil
}
