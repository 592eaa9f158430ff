package pdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
)

// Analysis method labels stored in DocumentRecord.AnalysisMethod
const (
	MethodLocal  = "Local"
	MethodLayout = "Azure Document Intelligence"
)

// SidecarSuffix is appended to a PDF name to store its recognition result
const SidecarSuffix = ".ocr.json"

// ErrNoText is returned by a recognizer that found no text at all
var ErrNoText = errors.New("no text recognized")

// Recognition is the line-level output of a recognizer for one document
type Recognition struct {
	Method string                   `json:"method"`
	Pages  int                      `json:"pages"`
	Lines  []minutes.RecognizedLine `json:"lines"`
}

// Text joins the recognized lines page by page
func (r *Recognition) Text() string {
	return minutes.JoinPages(r.Lines)
}

// Recognizer turns PDF bytes into recognized lines
type Recognizer interface {
	Recognize(ctx context.Context, doc []byte) (*Recognition, error)
}

// Fallback tries Primary first and uses Secondary when Primary fails or
// returns no lines. Either field may be nil.
type Fallback struct {
	Primary   Recognizer
	Secondary Recognizer
	Logger    *slog.Logger
}

// Recognize implements Recognizer
func (f *Fallback) Recognize(ctx context.Context, doc []byte) (*Recognition, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var primaryErr error
	if f.Primary != nil {
		rec, err := f.Primary.Recognize(ctx, doc)
		if err == nil && len(rec.Lines) > 0 {
			return rec, nil
		}
		if err == nil {
			err = ErrNoText
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		primaryErr = err
		logger.Warn("primary recognizer failed, falling back", "err", err)
	}

	if f.Secondary == nil {
		if primaryErr == nil {
			primaryErr = errors.New("no recognizer configured")
		}
		return nil, primaryErr
	}

	rec, err := f.Secondary.Recognize(ctx, doc)
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("all recognizers failed: %w", errors.Join(primaryErr, err))
		}
		return nil, err
	}
	return rec, nil
}

// SidecarName returns the name of the recognition sidecar for a PDF name
func SidecarName(pdfName string) string {
	return pdfName + SidecarSuffix
}

// ResultName returns the name of the JSON result for a PDF name
func ResultName(pdfName string) string {
	return strings.TrimSuffix(pdfName, path.Ext(pdfName)) + ".json"
}

// IsPDFName reports whether a file or blob name has a .pdf extension
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// EncodeSidecar serializes a recognition for storage next to its PDF
func EncodeSidecar(rec *Recognition) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sidecar: %w", err)
	}
	return data, nil
}

// DecodeSidecar reads a sidecar written by EncodeSidecar. A document that
// decodes without any lines is reported as ErrNoText so callers can try
// another format.
func DecodeSidecar(data []byte) (*Recognition, error) {
	var rec Recognition
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	if len(rec.Lines) == 0 {
		return nil, ErrNoText
	}
	if rec.Pages == 0 {
		for _, l := range rec.Lines {
			rec.Pages = max(rec.Pages, l.PageNumber)
		}
	}
	return &rec, nil
}
