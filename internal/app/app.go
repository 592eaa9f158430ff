// Package app wires configuration into the stores, recognizers and
// processor shared by the minutes binaries.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/a3tai/mcp-minutes-reader/internal/blob"
	"github.com/a3tai/mcp-minutes-reader/internal/config"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf/docintel"
	"github.com/a3tai/mcp-minutes-reader/internal/pipeline"
	"github.com/a3tai/mcp-minutes-reader/internal/records"
)

// Options adjusts how New builds the application
type Options struct {
	Logger *slog.Logger
	// LocalSource keeps reading PDFs from the configured directory even
	// when a blob container is configured; results still go to the container.
	LocalSource bool
	// HTTPClient is used for the hosted layout service
	HTTPClient *http.Client
}

// App holds the collaborators built from a Config
type App struct {
	Config     *config.Config
	Source     blob.Store
	Results    blob.Store
	Local      pdf.Recognizer
	Layout     pdf.Recognizer // nil when the hosted service is not configured
	Recognizer pdf.Recognizer
	Validator  *pdf.Validator
	Repository *records.Repository // nil without a database path
	Processor  *pipeline.Processor
	Logger     *slog.Logger
}

// New builds the application. Close releases the database.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:    cfg,
		Local:     pdf.NewTextLayer(),
		Validator: pdf.NewValidator(cfg.MaxFileSize),
		Logger:    logger,
	}

	var err error
	if a.Source, a.Results, err = openStores(cfg, opts.LocalSource); err != nil {
		return nil, err
	}

	if cfg.UsesLayoutService() {
		layout, err := docintel.New(docintel.Config{
			Endpoint:   cfg.DocIntelEndpoint,
			Key:        cfg.DocIntelKey,
			Timeout:    cfg.DocIntelTimeout,
			HTTPClient: opts.HTTPClient,
			Logger:     logger.With("component", "docintel"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create layout recognizer: %w", err)
		}
		a.Layout = layout
	}
	a.Recognizer = selectRecognizer(cfg.Recognizer, a.Local, a.Layout, logger)

	if cfg.DatabasePath != "" {
		if a.Repository, err = records.Open(cfg.DatabasePath); err != nil {
			return nil, err
		}
	}

	a.Processor, err = pipeline.New(pipeline.Options{
		Source:     a.Source,
		Results:    a.Results,
		Recognizer: a.Recognizer,
		Validator:  a.Validator,
		Repository: a.Repository,
		XLSXName:   cfg.XLSXPath,
		Workers:    cfg.Workers,
		Logger:     logger.With("component", "pipeline"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("application wired",
		"recognizer", cfg.Recognizer,
		"layout", a.Layout != nil,
		"blob", cfg.UsesBlobStorage(),
		"db", cfg.DatabasePath != "")
	return a, nil
}

// Close releases the database, if any
func (a *App) Close() error {
	if a.Repository == nil {
		return nil
	}
	return a.Repository.Close()
}

func openStores(cfg *config.Config, localSource bool) (blob.Store, blob.Store, error) {
	var source, results blob.Store
	if cfg.UsesBlobStorage() {
		c, err := blob.NewContainer(cfg.BlobSASURL)
		if err != nil {
			return nil, nil, err
		}
		source, results = c, c
	} else {
		out, err := blob.NewDirectory(cfg.OutputDirectory)
		if err != nil {
			return nil, nil, fmt.Errorf("output directory: %w", err)
		}
		results = out
	}

	if source == nil || localSource {
		dir, err := blob.NewDirectory(cfg.PDFDirectory)
		if err != nil {
			return nil, nil, fmt.Errorf("pdf directory: %w", err)
		}
		source = dir
	}
	return source, results, nil
}

// selectRecognizer maps the recognizer setting onto the available
// recognizers. auto prefers the layout service and falls back to the text
// layer; without the service it is the text layer alone.
func selectRecognizer(mode string, local, layout pdf.Recognizer, logger *slog.Logger) pdf.Recognizer {
	switch {
	case layout == nil || mode == config.RecognizerLocal:
		return local
	case mode == config.RecognizerLayout:
		return layout
	default:
		return &pdf.Fallback{Primary: layout, Secondary: local, Logger: logger}
	}
}

// NewLogger returns a text logger at the configured level
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}
