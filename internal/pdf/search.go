package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf/security"
)

// Search discovers minutes PDFs and reports whether they have been processed
type Search struct {
	validator *Validator
	outputDir string
}

// NewSearch creates a search handler. Results and sidecars are looked up in
// outputDir; an empty outputDir means next to the PDFs.
func NewSearch(maxFileSize int64, outputDir string) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
		outputDir: outputDir,
	}
}

// SearchDirectory lists the PDFs below req.Directory, sorted by relative path
func (s *Search) SearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	if _, err := os.Stat(req.Directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}

	absDirectory, err := filepath.Abs(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}
	bounds, err := security.NewPathValidator(absDirectory)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	pdfFiles := []FileInfo{}
	pending := 0

	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Intentionally continue on file errors
		}

		if within, err := bounds.IsPathWithinDirectory(path); err != nil || !within {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsPDFName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // see above
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			return nil //nolint:nilerr // Skip invalid files but continue processing
		}

		if query != "" && !matchesQuery(info.Name(), query) {
			return nil
		}

		rel, _ := filepath.Rel(absDirectory, path)
		file := FileInfo{
			Path:         path,
			Name:         filepath.ToSlash(rel),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
			Processed:    s.exists(absDirectory, ResultName(rel)),
			HasSidecar:   s.exists(absDirectory, SidecarName(rel)),
		}
		if !file.Processed {
			pending++
		} else if req.PendingOnly {
			return nil
		}

		pdfFiles = append(pdfFiles, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Slice(pdfFiles, func(i, j int) bool { return pdfFiles[i].Name < pdfFiles[j].Name })

	return &PDFSearchDirectoryResult{
		Files:        pdfFiles,
		TotalCount:   len(pdfFiles),
		PendingCount: pending,
		Directory:    absDirectory,
		SearchQuery:  req.Query,
	}, nil
}

// exists checks for a derived file in the output directory
func (s *Search) exists(root, rel string) bool {
	dir := s.outputDir
	if dir == "" {
		dir = root
	}
	_, err := os.Stat(filepath.Join(dir, rel))
	return err == nil
}

// matchesQuery matches a lowercase query against a file name. Every query
// word has to occur in some word of the name.
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	name := strings.TrimSuffix(strings.ToLower(filename), ".pdf")
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(name)
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return strings.ContainsRune(" _-.()[]", r)
	})
}
