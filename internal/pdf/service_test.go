package pdf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewService(testMaxFileSize, dir, dir)
	require.NoError(t, err)
	return s, dir
}

func TestNewService(t *testing.T) {
	_, err := NewService(testMaxFileSize, "", "")
	assert.Error(t, err)

	s, dir := newTestService(t)
	assert.Equal(t, int64(testMaxFileSize), s.GetMaxFileSize())
	assert.Equal(t, dir, s.Directory())
}

func TestService_ValidateFile(t *testing.T) {
	s, dir := newTestService(t)
	writePDF(t, dir, "digital.pdf", minutesPage)
	writePDF(t, dir, "scan.pdf", []string{})

	result, err := s.ValidateFile(context.Background(), PDFValidateFileRequest{Path: "digital.pdf"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.True(t, result.HasText)
	assert.Equal(t, RecommendLocal, result.Recommended)
	assert.Equal(t, filepath.Join(dir, "digital.pdf"), result.Path)

	result, err = s.ValidateFile(context.Background(), PDFValidateFileRequest{Path: "scan.pdf"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.False(t, result.HasText)
	assert.Equal(t, RecommendLayout, result.Recommended)

	_, err = s.ValidateFile(context.Background(), PDFValidateFileRequest{Path: "../outside.pdf"})
	assert.ErrorContains(t, err, "security validation failed")
}

func TestService_ReadDocument(t *testing.T) {
	s, dir := newTestService(t)
	path := writePDF(t, dir, "2023/stv.pdf", minutesPage)

	doc, err := s.ReadDocument("2023/stv.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, doc)

	name, err := s.RelativeName(path)
	require.NoError(t, err)
	assert.Equal(t, "2023/stv.pdf", name)

	_, err = s.ReadDocument("/etc/hosts")
	assert.Error(t, err)
	assert.False(t, s.IsValidPDF("/etc/hosts"))
	assert.True(t, s.IsValidPDF(path))
}

func TestService_SearchDirectory(t *testing.T) {
	s, dir := newTestService(t)
	writePDF(t, dir, "a.pdf", minutesPage)
	writeFile(t, dir, "a.json", []byte("{}"))
	writePDF(t, dir, "b.pdf", minutesPage)

	result, err := s.SearchDirectory(PDFSearchDirectoryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.PendingCount)

	_, err = s.SearchDirectory(PDFSearchDirectoryRequest{Directory: filepath.Dir(dir)})
	assert.ErrorContains(t, err, "security validation failed")
}

func TestService_ServerInfo(t *testing.T) {
	s, dir := newTestService(t)
	writePDF(t, dir, "a.pdf", minutesPage)
	writePDF(t, dir, "b.pdf", minutesPage)
	writeFile(t, dir, "b.json", []byte("{}"))

	tools := []ToolInfo{{Name: "minutes_parse_file"}}
	info := s.ServerInfo(context.Background(), "mcp-minutes-reader", "1.0.0", "auto", tools)

	assert.Equal(t, "mcp-minutes-reader", info.ServerName)
	assert.Equal(t, "auto", info.Recognizer)
	assert.Equal(t, tools, info.AvailableTools)
	require.Len(t, info.PendingFiles, 1)
	assert.Equal(t, "a.pdf", info.PendingFiles[0].Name)
	assert.Equal(t, 1, info.PendingCount)
}
