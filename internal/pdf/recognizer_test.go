package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
)

type stubRecognizer struct {
	rec   *Recognition
	err   error
	calls int
}

func (s *stubRecognizer) Recognize(ctx context.Context, doc []byte) (*Recognition, error) {
	s.calls++
	return s.rec, s.err
}

func recognition(method string, contents ...string) *Recognition {
	rec := &Recognition{Method: method, Pages: 1}
	for _, c := range contents {
		rec.Lines = append(rec.Lines, minutes.RecognizedLine{Content: c, PageNumber: 1})
	}
	return rec
}

func TestFallback_Recognize(t *testing.T) {
	hosted := recognition(MethodLayout, "TOP 1: Bericht")
	local := recognition(MethodLocal, "TOP 1: Bericht")

	tests := []struct {
		name          string
		primary       *stubRecognizer
		secondary     *stubRecognizer
		wantMethod    string
		wantErr       bool
		wantSecondary int
	}{
		{
			name:          "primary succeeds",
			primary:       &stubRecognizer{rec: hosted},
			secondary:     &stubRecognizer{rec: local},
			wantMethod:    MethodLayout,
			wantSecondary: 0,
		},
		{
			name:          "primary fails",
			primary:       &stubRecognizer{err: errors.New("401 unauthorized")},
			secondary:     &stubRecognizer{rec: local},
			wantMethod:    MethodLocal,
			wantSecondary: 1,
		},
		{
			name:          "primary returns nothing",
			primary:       &stubRecognizer{rec: recognition(MethodLayout)},
			secondary:     &stubRecognizer{rec: local},
			wantMethod:    MethodLocal,
			wantSecondary: 1,
		},
		{
			name:          "both fail",
			primary:       &stubRecognizer{err: errors.New("timeout")},
			secondary:     &stubRecognizer{err: ErrNoText},
			wantErr:       true,
			wantSecondary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fallback{Primary: tt.primary, Secondary: tt.secondary}
			rec, err := f.Recognize(context.Background(), []byte("%PDF"))
			assert.Equal(t, tt.wantSecondary, tt.secondary.calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoText)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, rec.Method)
		})
	}
}

func TestFallback_NoSecondary(t *testing.T) {
	f := &Fallback{Primary: &stubRecognizer{err: errors.New("boom")}}
	_, err := f.Recognize(context.Background(), nil)
	assert.EqualError(t, err, "boom")

	_, err = (&Fallback{}).Recognize(context.Background(), nil)
	assert.Error(t, err)
}

func TestSidecarRoundTrip(t *testing.T) {
	conf := 0.98
	rec := &Recognition{
		Method: MethodLayout,
		Lines: []minutes.RecognizedLine{
			{Content: "Niederschrift", PageNumber: 1, Confidence: &conf},
			{Content: "TOP 3: Verschiedenes", PageNumber: 3, Polygon: []minutes.Point{{X: 0.1, Y: 0.2}}},
		},
	}

	data, err := EncodeSidecar(rec)
	require.NoError(t, err)

	decoded, err := DecodeSidecar(data)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Pages)
	assert.Equal(t, rec.Lines, decoded.Lines)

	_, err = DecodeSidecar([]byte(`{"method":"Local","lines":[]}`))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = DecodeSidecar([]byte(`{`))
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "2023/stv-01.pdf.ocr.json", SidecarName("2023/stv-01.pdf"))
	assert.Equal(t, "2023/stv-01.json", ResultName("2023/stv-01.pdf"))
	assert.Equal(t, "STV.json", ResultName("STV.PDF"))
	assert.True(t, IsPDFName("a/B.PDF"))
	assert.False(t, IsPDFName("a/b.pdf.ocr.json"))
}
