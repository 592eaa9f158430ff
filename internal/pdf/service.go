package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf/security"
)

// Recommended recognizer names reported by ValidateFile
const (
	RecommendLocal  = "local"
	RecommendLayout = "layout"
)

// directory scans for server info give up after this long
const serverInfoScanTimeout = 5 * time.Second

// Service handles PDF file operations confined to one directory
type Service struct {
	maxFileSize   int64
	validator     *Validator
	search        *Search
	textLayer     *TextLayer
	pathValidator *security.PathValidator
	outputDir     string
}

// NewService creates a new PDF service for the configured directory.
// Results and sidecars are looked up in outputDir.
func NewService(maxFileSize int64, configuredDirectory, outputDir string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		validator:     NewValidator(maxFileSize),
		search:        NewSearch(maxFileSize, outputDir),
		textLayer:     NewTextLayer(),
		pathValidator: pathValidator,
		outputDir:     outputDir,
	}, nil
}

// ResolvePath turns a relative or absolute path into an absolute path inside
// the configured directory
func (s *Service) ResolvePath(path string) (string, error) {
	resolved, err := s.pathValidator.NormalizePath(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	return resolved, nil
}

// RelativeName returns the slash separated name of path below the configured directory
func (s *Service) RelativeName(path string) (string, error) {
	name, err := s.pathValidator.RelativeName(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	return name, nil
}

// ReadDocument returns the bytes of a PDF inside the configured directory
func (s *Service) ReadDocument(path string) ([]byte, error) {
	resolved, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return s.validator.readFile(resolved)
}

// ValidateFile checks a PDF and reports whether its text layer is readable.
// Documents without text need the hosted layout recognizer.
func (s *Service) ValidateFile(ctx context.Context, req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	resolved, err := s.ResolvePath(req.Path)
	if err != nil {
		return nil, err
	}
	req.Path = resolved

	result, err := s.validator.ValidateFile(req)
	if err != nil || !result.Valid {
		return result, err
	}

	doc, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	rec, err := s.textLayer.Recognize(ctx, doc)
	switch {
	case err == nil:
		result.HasText = len(rec.Lines) > 0
	case errors.Is(err, ErrNoText):
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		result.Message = fmt.Sprintf("text layer unreadable: %v", err)
	}

	result.Recommended = RecommendLayout
	if result.HasText {
		result.Recommended = RecommendLocal
	}
	return result, nil
}

// SearchDirectory searches for minutes PDFs. An empty directory means the
// configured one.
func (s *Service) SearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.GetConfiguredDirectory()
	}

	if err := s.pathValidator.ValidateDirectory(req.Directory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	return s.search.SearchDirectory(req)
}

// IsValidPDF performs a quick validation check on a file
func (s *Service) IsValidPDF(filePath string) bool {
	resolved, err := s.ResolvePath(filePath)
	if err != nil {
		return false
	}
	return s.validator.IsValidPDF(resolved)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Directory returns the configured PDF directory
func (s *Service) Directory() string {
	return s.pathValidator.GetConfiguredDirectory()
}

// ServerInfo describes the server and lists the pending documents of the
// configured directory. A slow or failing scan yields an empty list.
func (s *Service) ServerInfo(ctx context.Context, serverName, version, recognizer string, tools []ToolInfo) *ServerInfoResult {
	scanCtx, cancel := context.WithTimeout(ctx, serverInfoScanTimeout)
	defer cancel()

	resultChan := make(chan *PDFSearchDirectoryResult, 1)
	go func() {
		res, err := s.SearchDirectory(PDFSearchDirectoryRequest{PendingOnly: true})
		if err != nil {
			res = nil
		}
		resultChan <- res
	}()

	pending := []FileInfo{}
	total := 0
	select {
	case res := <-resultChan:
		if res != nil {
			pending = res.Files
			total = res.PendingCount
		}
	case <-scanCtx.Done():
	}

	return &ServerInfoResult{
		ServerName:       serverName,
		Version:          version,
		DefaultDirectory: s.Directory(),
		OutputDirectory:  s.outputDir,
		MaxFileSize:      s.maxFileSize,
		Recognizer:       recognizer,
		AvailableTools:   tools,
		PendingFiles:     pending,
		PendingCount:     total,
	}
}
