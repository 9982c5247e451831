// File path: cmd/redline/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marginalia-dev/redline/internal/api"
	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/data/orchestrator"
)

func main() {
	logger := common.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Warn("redline: .env file not loaded", "error", err)
	} else {
		logger.Info("redline: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	corpusPath := flag.String("corpus", "", "path to the reference corpus directory")
	catalogPath := flag.String("catalog", "", "path to the SQLite catalog database")
	feedbackWindow := flag.String("feedback-window", "", "window for effectiveness lookups (e.g. 720h)")
	flag.Parse()

	orchCfg, err := orchestrator.LoadConfig()
	if err != nil {
		logger.Error("redline: orchestrator config load failed", "error", err)
		fmt.Println("orchestrator config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*corpusPath); trimmed != "" {
		orchCfg.CorpusPath = trimmed
	}
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		orchCfg.CatalogPath = trimmed
	}
	if trimmed := strings.TrimSpace(*feedbackWindow); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("redline: invalid feedback window", "value", trimmed, "error", err)
			fmt.Println("feedback window error:", err)
			os.Exit(1)
		}
		orchCfg.FeedbackWindow = dur
	}

	logger.Info("redline: startup initiated", "addr", *addr, "corpus", orchCfg.CorpusPath, "catalog", orchCfg.CatalogPath)

	orch, err := orchestrator.New(ctx, orchCfg)
	if err != nil {
		logger.Error("redline: orchestrator initialization failed", "error", err)
		fmt.Println("orchestrator error:", err)
		os.Exit(1)
	}
	defer orch.Close()

	server, err := api.NewServer(orch)
	if err != nil {
		logger.Error("redline: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("redline: server listening", "addr", *addr, "health", "/healthz")
		fmt.Printf("Serving on %s\n", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("redline: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("redline: graceful shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("redline: server stopped", "error", err)
			fmt.Println("server error:", err)
			os.Exit(1)
		}
	}
	logger.Info("redline: shutdown complete")
}
