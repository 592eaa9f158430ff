package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-minutes-reader/internal/config"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf/pdftest"
	"github.com/a3tai/mcp-minutes-reader/internal/pipeline"
)

func batchConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		PDFDirectory:    t.TempDir(),
		OutputDirectory: t.TempDir(),
		Recognizer:      config.RecognizerLocal,
		DocIntelTimeout: time.Minute,
		LogLevel:        "error",
		MaxFileSize:     1024 * 1024,
		Workers:         2,
	}
}

func TestRun(t *testing.T) {
	cfg := batchConfig(t)
	cfg.XLSXPath = "minutes.xlsx"
	page := []string{"NIEDERSCHRIFT", "Tag: 14.3.2023", "Anwesend:", "STV Mueller"}
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PDFDirectory, "a.pdf"), pdftest.Build(page), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), cfg, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var summary pipeline.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, "minutes.xlsx", summary.Workbook)
	assert.FileExists(t, filepath.Join(cfg.OutputDirectory, "a.json"))
	assert.FileExists(t, filepath.Join(cfg.OutputDirectory, "minutes.xlsx"))

	// nothing left to do
	stdout.Reset()
	require.Equal(t, 0, run(context.Background(), cfg, &stdout, &stderr))
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Zero(t, summary.Total)
}

func TestRun_Failures(t *testing.T) {
	cfg := batchConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PDFDirectory, "broken.pdf"), []byte("not a pdf"), 0o600))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), cfg, &stdout, &stderr))

	var summary pipeline.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Documents, 1)
	assert.NotEmpty(t, summary.Documents[0].Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 1, run(ctx, cfg, &stdout, &stderr))
}
