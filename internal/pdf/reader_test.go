package pdf

import (
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf/pdftest"
)

func TestTextLayer_Recognize(t *testing.T) {
	doc := pdftest.Build(minutesPage, []string{"TOP 2: Bebauungsplan Am Weiher"})

	rec, err := NewTextLayer().Recognize(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, MethodLocal, rec.Method)
	assert.Equal(t, 2, rec.Pages)
	require.Len(t, rec.Lines, 5)

	assert.Equal(t, "Niederschrift", rec.Lines[0].Content)
	assert.Equal(t, 1, rec.Lines[0].PageNumber)
	assert.Equal(t, "über die öffentliche Sitzung des Stadtrates", rec.Lines[1].Content)
	assert.Equal(t, "TOP 2: Bebauungsplan Am Weiher", rec.Lines[4].Content)
	assert.Equal(t, 2, rec.Lines[4].PageNumber)

	for _, line := range rec.Lines {
		require.Len(t, line.Polygon, 4)
		for _, p := range line.Polygon {
			assert.GreaterOrEqual(t, p.X, 0.0)
			assert.LessOrEqual(t, p.X, 1.0)
			assert.GreaterOrEqual(t, p.Y, 0.0)
			assert.LessOrEqual(t, p.Y, 1.0)
		}
	}
	// top to bottom
	assert.Less(t, rec.Lines[0].Polygon[0].Y, rec.Lines[1].Polygon[0].Y)

	text := rec.Text()
	assert.Contains(t, text, "--- SEITE 2 ---")
	assert.Contains(t, text, "am 14.03.2023")
}

func TestTextLayer_NoTextLayer(t *testing.T) {
	doc := pdftest.Build([]string{}, []string{})

	_, err := NewTextLayer().Recognize(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestTextLayer_InvalidDocument(t *testing.T) {
	_, err := NewTextLayer().Recognize(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}

func TestTextLayer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextLayer().Recognize(ctx, pdftest.Build(minutesPage))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoinRow(t *testing.T) {
	tests := []struct {
		name string
		runs pdf.TextHorizontal
		want string
	}{
		{"empty", nil, ""},
		{"single", pdf.TextHorizontal{{S: "TOP 1:", X: 72}}, "TOP 1:"},
		{
			name: "sorted by x with gap",
			runs: pdf.TextHorizontal{{S: "Tagesordnung", X: 140}, {S: "TOP 1:", X: 72}},
			want: "TOP 1: Tagesordnung",
		},
		{
			name: "adjacent runs",
			runs: pdf.TextHorizontal{{S: "Stadt", X: 72}, {S: "rat", X: 72 + 5*avgCharWidth}},
			want: "Stadtrat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := joinRow(tt.runs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowPolygon(t *testing.T) {
	poly := rowPolygon(59.5, 297.5, 421, 595, 842)
	require.Len(t, poly, 4)
	assert.InDelta(t, 0.1, poly[0].X, 1e-9)
	assert.InDelta(t, 0.5, poly[1].X, 1e-9)
	assert.InDelta(t, 0.5, poly[2].Y, 1e-9)
	assert.Less(t, poly[0].Y, poly[3].Y)

	clamped := rowPolygon(-10, 1000, 900, 595, 842)
	for _, p := range clamped {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.LessOrEqual(t, p.X, 1.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 1.0)
	}
}
