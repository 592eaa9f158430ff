package minutes

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	pageMarkerPattern  = regexp.MustCompile(`(?m)^[ \t]*---[ \t]*(?:SEITE[ \t]+\d+|Page Break)[ \t]*---[ \t]*$\n?`)
	pageMarkerLine     = regexp.MustCompile(`^---[ \t]*(?:SEITE[ \t]+\d+|Page Break)[ \t]*---$`)
	pageFooterPattern  = regexp.MustCompile(`^Seite \d+ von \d+$`)
	documentCodeLine   = regexp.MustCompile(`^STV/\d+/\d+-\d+$`)
	repeatedBlankLines = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+\n`)
)

// NormalizeText brings recognizer output into a canonical form: NFC
// composed umlauts, Unix line endings and plain spaces.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\u00a0", " ")
}

// JoinLines concatenates the line contents, one per line.
func JoinLines(lines []RecognizedLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

// JoinPages concatenates the lines grouped by page, each page introduced by
// a "--- SEITE N ---" marker.
func JoinPages(lines []RecognizedLine) string {
	byPage := make(map[int][]RecognizedLine)
	for _, l := range lines {
		byPage[l.PageNumber] = append(byPage[l.PageNumber], l)
	}
	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n--- SEITE %d ---\n", p)
		b.WriteString(JoinLines(byPage[p]))
	}
	return b.String()
}

// StripPageMarkers removes the page separator lines inserted by JoinPages
// and by the local text extractor.
func StripPageMarkers(text string) string {
	return pageMarkerPattern.ReplaceAllString(text, "")
}

// isNoiseLine reports page separators and OCR boilerplate such as page
// footers and document codes. The line is expected to be trimmed.
func isNoiseLine(line string) bool {
	return pageMarkerLine.MatchString(line) ||
		pageFooterPattern.MatchString(line) ||
		documentCodeLine.MatchString(line)
}

// CleanSection drops page markers and boilerplate lines and collapses runs
// of blank lines into a single blank line.
func CleanSection(text string) string {
	text = StripPageMarkers(text)
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isNoiseLine(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	text = strings.Join(kept, "\n")
	text = repeatedBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// runeWindow returns up to n runes of text starting at byte offset start.
func runeWindow(text string, start, n int) string {
	if start >= len(text) {
		return ""
	}
	rest := text[start:]
	count := 0
	for i := range rest {
		if count == n {
			return rest[:i]
		}
		count++
	}
	return rest
}

func strPtr(s string) *string {
	return &s
}
