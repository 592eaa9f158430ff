package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-minutes-reader/internal/app"
	"github.com/a3tai/mcp-minutes-reader/internal/config"
	"github.com/a3tai/mcp-minutes-reader/internal/mcp"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging returns the logger for the configured mode. In stdio mode
// stdout carries the protocol, so logs go to stderr and only when debugging.
func setupLogging(cfg *config.Config, stderr io.Writer) *slog.Logger {
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return app.NewLogger(cfg, stderr)
}

// runServerMode runs the SSE server until a signal arrives or it fails
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *slog.Logger) int {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()

		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", "err", err)
			return 1
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", "err", err)
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// runStdioMode serves until the parent process closes stdin
func runStdioMode(ctx context.Context, server *mcp.Server, logger *slog.Logger) int {
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "err", err)
		return 1
	}
	return 0
}

func run() int {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := setupLogging(cfg, os.Stderr)
	slog.SetDefault(logger)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsServerMode() {
		logger.Debug("starting", "config", cfg.String())
	}

	// the server exposes the local directory; only results may live in a container
	application, err := app.New(cfg, app.Options{Logger: logger, LocalSource: true})
	if err != nil {
		logger.Error("failed to set up", "err", err)
		return 1
	}
	defer application.Close()

	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory, cfg.OutputDirectory)
	if err != nil {
		logger.Error("failed to create PDF service", "err", err)
		return 1
	}

	server, err := mcp.NewServer(cfg, mcp.Options{
		PDFService: pdfService,
		Processor:  application.Processor,
		Local:      application.Local,
		Layout:     application.Layout,
		Repository: application.Repository,
		Logger:     logger.With("component", "mcp"),
	})
	if err != nil {
		logger.Error("failed to create MCP server", "err", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server, logger)
	}
	return runStdioMode(ctx, server, logger)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	os.Exit(run())
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Minutes Reader\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
