package pdf

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
)

// Page geometry fallbacks, in PDF points
const (
	defaultPageWidth  = 595.0 // A4
	defaultPageHeight = 842.0
	defaultFontSize   = 11.0
	avgCharWidth      = 0.5 * defaultFontSize
)

// TextLayer recognizes the embedded text of born-digital PDFs. It cannot
// read scanned pages; those yield no lines. Row geometry is approximate
// because the text layer carries no glyph widths at row level.
type TextLayer struct {
	maxTextSize int
}

// NewTextLayer creates a local text layer recognizer
func NewTextLayer() *TextLayer {
	return &TextLayer{
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// Recognize implements Recognizer
func (t *TextLayer) Recognize(ctx context.Context, doc []byte) (*Recognition, error) {
	reader, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	rec := &Recognition{Method: MethodLocal, Pages: reader.NumPage(), Lines: []minutes.RecognizedLine{}}
	total := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines := t.pageLines(reader, pageNum)
		for _, l := range lines {
			total += len(l.Content)
			if total > t.maxTextSize {
				return rec, nil
			}
			rec.Lines = append(rec.Lines, l)
		}
	}

	if len(rec.Lines) == 0 {
		return nil, ErrNoText
	}
	return rec, nil
}

// pageLines extracts the rows of one page top to bottom. A page that the
// library cannot decode contributes no lines.
func (t *TextLayer) pageLines(reader *pdf.Reader, pageNum int) (lines []minutes.RecognizedLine) {
	defer func() {
		if recover() != nil {
			lines = nil
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	width, height := pageSize(page)
	for _, row := range rows {
		content, x0, x1 := joinRow(row.Content)
		if strings.TrimSpace(content) == "" {
			continue
		}
		y := float64(row.Position)
		lines = append(lines, minutes.RecognizedLine{
			Content:    content,
			PageNumber: pageNum,
			Polygon:    rowPolygon(x0, x1, y, width, height),
		})
	}
	return lines
}

// joinRow concatenates the text runs of a row, inserting a space where the
// horizontal gap suggests a word break.
func joinRow(texts pdf.TextHorizontal) (string, float64, float64) {
	if len(texts) == 0 {
		return "", 0, 0
	}
	runs := make([]pdf.Text, len(texts))
	copy(runs, texts)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	x0 := runs[0].X
	end := x0
	for i, r := range runs {
		if i > 0 && r.X-end > avgCharWidth/2 && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(r.S, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(r.S)
		end = max(end, r.X+runWidth(r))
	}
	return strings.TrimSpace(b.String()), x0, end
}

func runWidth(r pdf.Text) float64 {
	if r.W > 0 {
		return r.W
	}
	return float64(utf8.RuneCountInString(r.S)) * avgCharWidth
}

// rowPolygon returns the row box as four page-relative points, clockwise
// from the top-left corner, with the y axis pointing down.
func rowPolygon(x0, x1, baseline, width, height float64) []minutes.Point {
	top := clamp01(1 - (baseline+defaultFontSize)/height)
	bottom := clamp01(1 - baseline/height)
	left := clamp01(x0 / width)
	right := clamp01(x1 / width)
	return []minutes.Point{
		{X: left, Y: top},
		{X: right, Y: top},
		{X: right, Y: bottom},
		{X: left, Y: bottom},
	}
}

func pageSize(page pdf.Page) (float64, float64) {
	box := page.V.Key("MediaBox")
	if box.Len() < 4 {
		return defaultPageWidth, defaultPageHeight
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
