// Command minutes-batch parses every pending minutes PDF of a directory or
// blob container and prints the run summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/a3tai/mcp-minutes-reader/internal/app"
	"github.com/a3tai/mcp-minutes-reader/internal/config"
	"github.com/a3tai/mcp-minutes-reader/internal/pipeline"
)

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) int {
	logger := app.NewLogger(cfg, stderr)

	application, err := app.New(cfg, app.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to set up", "err", err)
		return 1
	}
	defer application.Close()

	summary, err := application.Processor.ProcessAll(ctx)
	if summary != nil {
		if encErr := writeSummary(stdout, summary); encErr != nil {
			logger.Error("failed to write summary", "err", encErr)
			return 1
		}
	}
	if err != nil {
		logger.Error("batch run failed", "err", err)
		return 1
	}
	if summary.Failed > 0 {
		return 1
	}
	return 0
}

func writeSummary(w io.Writer, summary *pipeline.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
