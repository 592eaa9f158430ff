package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf/pdftest"
)

const testMaxFileSize = 10 * 1024 * 1024

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writePDF(t *testing.T, dir, name string, pages ...[]string) string {
	t.Helper()
	return writeFile(t, dir, name, pdftest.Build(pages...))
}

var minutesPage = []string{
	"Niederschrift",
	"über die öffentliche Sitzung des Stadtrates",
	"am 14.03.2023",
	"TOP 1: Genehmigung der Tagesordnung",
}
