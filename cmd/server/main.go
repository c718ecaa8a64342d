package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/madrasa/internal/config"
	"github.com/me/madrasa/internal/files"
	"github.com/me/madrasa/internal/logging"
	"github.com/me/madrasa/internal/notify"
	"github.com/me/madrasa/internal/server"
	"github.com/me/madrasa/internal/store"
)

func main() {
	cfg := config.FromEnv(config.Default())

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Store driver (jsonfile, sqlite)")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "JSON-file store directory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "Homework upload directory")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	configFile := flag.String("config", "", "Path to a YAML config file")

	flag.Parse()

	if *configFile != "" {
		loaded, err := config.LoadFile(cfg, *configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Open store and run migrations.
	var st store.Store
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sqlStore, err := store.NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			os.Exit(1)
		}
		st = sqlStore
	default:
		st = store.NewJSONFileStore(cfg.DataDir, logger)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate store: %v\n", err)
		os.Exit(1)
	}
	if err := store.Seed(context.Background(), st, logger); err != nil {
		fmt.Fprintf(os.Stderr, "seed store: %v\n", err)
		os.Exit(1)
	}
	logger.Info("store ready", "driver", cfg.StoreDriver)

	// Homework uploads go to B2 when credentials are configured, local disk
	// otherwise.
	var fs files.Store
	if cfg.B2Enabled() {
		b2Store, err := files.NewB2Store(context.Background(), cfg.B2AccountID, cfg.B2AppKey, cfg.B2Bucket)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open b2 bucket: %v\n", err)
			os.Exit(1)
		}
		fs = b2Store
		logger.Info("upload backend ready", "backend", "b2", "bucket", cfg.B2Bucket)
	} else {
		localStore, err := files.NewLocalStore(cfg.UploadDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create upload directory: %v\n", err)
			os.Exit(1)
		}
		fs = localStore
		logger.Info("upload backend ready", "backend", "local", "dir", cfg.UploadDir)
	}

	var serverOpts []server.Option
	if cfg.TelegramBotToken != "" {
		serverOpts = append(serverOpts,
			server.WithNotifier(notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChatID, logger)))
		logger.Info("telegram notifications enabled")
	}

	srv := server.New(cfg, st, fs, logger, serverOpts...)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expired sessions accumulate between logins; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := st.DeleteExpiredSessions(ctx); err != nil {
					logger.Error("session sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
