// Package pdftest builds small born-digital PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	pageWidth  = 595
	pageHeight = 842
	topLine    = 800
	lineHeight = 16
)

// Build returns a PDF with one page per argument. Every string becomes one
// text line in Helvetica, top to bottom. A page without lines has an empty
// content stream, like a scan without a text layer.
func Build(pages ...[]string) []byte {
	var objects []string

	// 1 catalog, 2 page tree, 3 font, then page and content pairs
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %d %d] >>",
			strings.Join(kids, " "), len(pages), pageWidth, pageHeight),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)

	for i, lines := range pages {
		content := contentStream(lines)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
				pageWidth, pageHeight, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func contentStream(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		y := topLine - i*lineHeight
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "BT /F1 12 Tf 72 %d Td (%s) Tj ET", y, escape(line))
	}
	return b.String()
}

// escape encodes a line as WinAnsi and escapes PDF string delimiters.
// Characters outside WinAnsi become '?'.
func escape(s string) string {
	enc := charmap.Windows1252.NewEncoder()
	var b strings.Builder
	for _, r := range s {
		encoded, err := enc.String(string(r))
		if err != nil {
			encoded = "?"
		}
		switch encoded {
		case "(", ")", "\\":
			b.WriteByte('\\')
		}
		b.WriteString(encoded)
	}
	return b.String()
}
