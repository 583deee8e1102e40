package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/duclunn/form-extractor/internal/common"
	"github.com/duclunn/form-extractor/internal/export"
	"github.com/duclunn/form-extractor/internal/extract"
	"github.com/duclunn/form-extractor/internal/server"
	"github.com/duclunn/form-extractor/internal/session"
	"github.com/duclunn/form-extractor/internal/settings"
)

func main() {
	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("form-extractor")
	var (
		addr     = fs.StringLong("addr", cfg.Server.Addr, "HTTP listen address")
		dbPath   = fs.StringLong("db", cfg.Settings.DBPath, "Settings database file path")
		endpoint = fs.StringLong("endpoint", cfg.Extract.DefaultEndpoint, "Default extraction service URL")
		timeout  = fs.DurationLong("timeout", cfg.Extract.Timeout, "Per-file extraction timeout")
		verbose  = fs.BoolLong("verbose", "Enable debug logging")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FORM_EXTRACTOR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg.Server.Addr = *addr
	cfg.Settings.DBPath = *dbPath
	cfg.Extract.DefaultEndpoint = *endpoint
	cfg.Extract.Timeout = *timeout
	if err := cfg.Validate(); err != nil {
		logger.Error("main.config_error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settingsStore, err := settings.Open(cfg.Settings.DBPath, cfg.Extract.DefaultEndpoint)
	if err != nil {
		logger.Error("main.settings_error", "error", err, "path", cfg.Settings.DBPath)
		os.Exit(1)
	}
	defer func() {
		if err := settingsStore.Close(); err != nil {
			logger.Error("main.settings_close_error", "error", err)
		}
	}()

	store := session.NewStore()
	client := extract.NewClient(&http.Client{Timeout: cfg.Extract.Timeout}, logger)
	runner := session.NewService(store, client, settingsStore, logger)
	exporter := export.NewService(logger)
	api := server.NewServer(store, runner, exporter, settingsStore, client, cfg.Server.MaxUploadBytes, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("main.listening", "addr", cfg.Server.Addr, "endpoint", settingsStore.ServerURL())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("main.serve_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("main.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("main.shutdown_error", "error", err)
	}
	logger.Info("main.stopped")
}
