package docintel

import (
	"encoding/json"
	"fmt"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
)

// Operation states reported by the analyze operation
const (
	StatusNotStarted = "notStarted"
	StatusRunning    = "running"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Operation is the body returned when polling an analyze operation
type Operation struct {
	Status        string         `json:"status"`
	Error         *ErrorDetail   `json:"error,omitempty"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult,omitempty"`
}

// ErrorDetail is the service error object
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalyzeResult is the part of the layout result the parser needs
type AnalyzeResult struct {
	APIVersion string `json:"apiVersion,omitempty"`
	ModelID    string `json:"modelId,omitempty"`
	Content    string `json:"content,omitempty"`
	Pages      []Page `json:"pages"`
}

// Page is one analyzed page. Polygon coordinates use Unit.
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit,omitempty"`
	Lines      []Line  `json:"lines"`
	Words      []Word  `json:"words,omitempty"`
}

// Line is a recognized text line
type Line struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon,omitempty"`
	Spans      []Span    `json:"spans,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// Word is a recognized word with its confidence
type Word struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon,omitempty"`
	Span       Span      `json:"span"`
	Confidence float64   `json:"confidence"`
}

// Span addresses a range of AnalyzeResult.Content
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

func (s Span) contains(offset int) bool {
	return offset >= s.Offset && offset < s.Offset+s.Length
}

// Recognition converts the result into page-relative recognized lines
func (r *AnalyzeResult) Recognition() (*pdf.Recognition, error) {
	rec := &pdf.Recognition{
		Method: pdf.MethodLayout,
		Pages:  len(r.Pages),
		Lines:  []minutes.RecognizedLine{},
	}

	for i, page := range r.Pages {
		number := page.PageNumber
		if number == 0 {
			number = i + 1
		}
		rec.Pages = max(rec.Pages, number)

		for _, line := range page.Lines {
			if line.Content == "" {
				continue
			}
			rec.Lines = append(rec.Lines, minutes.RecognizedLine{
				Content:    line.Content,
				PageNumber: number,
				Polygon:    normalizePolygon(line.Polygon, page.Width, page.Height),
				Confidence: lineConfidence(line, page.Words),
			})
		}
	}

	if len(rec.Lines) == 0 {
		return nil, pdf.ErrNoText
	}
	return rec, nil
}

// normalizePolygon turns flat x,y pairs into points relative to the page size
func normalizePolygon(coords []float64, width, height float64) []minutes.Point {
	if len(coords) < 2 {
		return nil
	}
	points := make([]minutes.Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		x, y := coords[i], coords[i+1]
		if width > 0 {
			x /= width
		}
		if height > 0 {
			y /= height
		}
		points = append(points, minutes.Point{X: clamp01(x), Y: clamp01(y)})
	}
	return points
}

// lineConfidence averages the confidence of the words inside the line spans.
// An explicit line confidence wins.
func lineConfidence(line Line, words []Word) *float64 {
	if line.Confidence != nil {
		return line.Confidence
	}
	if len(line.Spans) == 0 {
		return nil
	}

	sum, n := 0.0, 0
	for _, w := range words {
		for _, s := range line.Spans {
			if s.contains(w.Span.Offset) {
				sum += w.Confidence
				n++
				break
			}
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// DecodeSidecar reads a stored recognition. It accepts the native sidecar
// format, a complete operation body and a bare analyze result.
func DecodeSidecar(data []byte) (*pdf.Recognition, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}

	if raw, ok := probe["analyzeResult"]; ok {
		var result AnalyzeResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode sidecar: %w", err)
		}
		return result.Recognition()
	}

	if raw, ok := probe["pages"]; ok && len(raw) > 0 && raw[0] == '[' {
		var result AnalyzeResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decode sidecar: %w", err)
		}
		return result.Recognition()
	}

	return pdf.DecodeSidecar(data)
}
