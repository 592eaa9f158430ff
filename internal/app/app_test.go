package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-minutes-reader/internal/blob"
	"github.com/a3tai/mcp-minutes-reader/internal/config"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf/docintel"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:            config.ModeStdio,
		PDFDirectory:    t.TempDir(),
		OutputDirectory: t.TempDir(),
		Recognizer:      config.RecognizerAuto,
		DocIntelTimeout: time.Minute,
		LogLevel:        "info",
		MaxFileSize:     1024 * 1024,
		Workers:         1,
	}
}

func TestNew_Recognizers(t *testing.T) {
	tests := []struct {
		name       string
		recognizer string
		endpoint   string
		check      func(t *testing.T, a *App)
	}{
		{
			name:       "auto without service uses text layer",
			recognizer: config.RecognizerAuto,
			check: func(t *testing.T, a *App) {
				assert.Nil(t, a.Layout)
				assert.IsType(t, &pdf.TextLayer{}, a.Recognizer)
			},
		},
		{
			name:       "auto with service falls back to text layer",
			recognizer: config.RecognizerAuto,
			endpoint:   "https://example.cognitiveservices.azure.com",
			check: func(t *testing.T, a *App) {
				require.IsType(t, &pdf.Fallback{}, a.Recognizer)
				fb := a.Recognizer.(*pdf.Fallback)
				assert.IsType(t, &docintel.Client{}, fb.Primary)
				assert.IsType(t, &pdf.TextLayer{}, fb.Secondary)
			},
		},
		{
			name:       "layout",
			recognizer: config.RecognizerLayout,
			endpoint:   "https://example.cognitiveservices.azure.com",
			check: func(t *testing.T, a *App) {
				assert.IsType(t, &docintel.Client{}, a.Recognizer)
			},
		},
		{
			name:       "local ignores service",
			recognizer: config.RecognizerLocal,
			endpoint:   "https://example.cognitiveservices.azure.com",
			check: func(t *testing.T, a *App) {
				assert.Nil(t, a.Layout)
				assert.IsType(t, &pdf.TextLayer{}, a.Recognizer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Recognizer = tt.recognizer
			if tt.endpoint != "" {
				cfg.DocIntelEndpoint = tt.endpoint
				cfg.DocIntelKey = "secret"
			}

			a, err := New(cfg, Options{})
			require.NoError(t, err)
			defer a.Close()
			assert.NotNil(t, a.Processor)
			assert.Nil(t, a.Repository)
			tt.check(t, a)
		})
	}
}

func TestNew_Stores(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.DatabasePath = filepath.Join(t.TempDir(), "minutes.db")

	a, err := New(cfg, Options{})
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Repository)

	require.NoError(t, a.Results.Put(ctx, "a.json", []byte("{}")))
	assert.FileExists(t, filepath.Join(cfg.OutputDirectory, "a.json"))
	require.IsType(t, &blob.Directory{}, a.Source)
	assert.Equal(t, cfg.PDFDirectory, a.Source.(*blob.Directory).Root())

	summary, err := a.Processor.ProcessAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestNew_Container(t *testing.T) {
	cfg := testConfig(t)
	cfg.BlobSASURL = "https://account.blob.core.windows.net/minutes?sv=2022-11-02&sig=x"

	a, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.IsType(t, &blob.Container{}, a.Source)
	assert.IsType(t, &blob.Container{}, a.Results)

	a, err = New(cfg, Options{LocalSource: true})
	require.NoError(t, err)
	assert.IsType(t, &blob.Directory{}, a.Source)
	assert.IsType(t, &blob.Container{}, a.Results)

	_, err = New(nil, Options{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t)
	cfg.LogLevel = "warn"

	logger := NewLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "document", "a.pdf")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "document=a.pdf")
}
