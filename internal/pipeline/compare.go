package pipeline

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
)

const (
	// only the leading part of both texts is compared character by character
	compareWindow  = 1000
	maxCharDiffs   = 50
	contextRunes   = 10
	maxPatternHits = 10
)

// comparePatterns count landmarks of a minutes text. Each runs to the
// first terminator instead of stopping before it.
var comparePatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"anwesenheit", regexp.MustCompile(`(?is)Anwesend[:\s]*(.*?)(?:Abwesend|TOP|Tagesordnung)`)},
	{"abwesend", regexp.MustCompile(`(?is)Abwesend[:\s]*(.*?)(?:TOP|Tagesordnung)`)},
	{"tagesordnung", regexp.MustCompile(`(?is)Tagesordnung[:\s]*(.*?)(?:TOP\s+1|Beschluss)`)},
	{"top_numbers", regexp.MustCompile(`(?i)TOP\s+(\d+(?:\.\d+)?)`)},
	{"datum", regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})`)},
	{"zeit", regexp.MustCompile(`(\d{1,2}:\d{2})`)},
	{"ort", regexp.MustCompile(`(?i)(Pohlheim|Sitzungssaal)`)},
}

// LengthStats compares the text lengths in runes
type LengthStats struct {
	LengthA    int `json:"length_a"`
	LengthB    int `json:"length_b"`
	Difference int `json:"length_difference"`
}

// CharDiff is one position where the texts disagree
type CharDiff struct {
	Position int    `json:"position"`
	CharA    string `json:"char_a"`
	CharB    string `json:"char_b"`
	Context  string `json:"context"`
}

// PatternCount holds the hits of one landmark pattern in both texts
type PatternCount struct {
	Name     string   `json:"name"`
	CountA   int      `json:"count_a"`
	CountB   int      `json:"count_b"`
	MatchesA []string `json:"matches_a"`
	MatchesB []string `json:"matches_b"`
}

// ParseSummary condenses the parsed record of one text
type ParseSummary struct {
	TotalPresent int                  `json:"total_present"`
	TotalExcused int                  `json:"total_excused"`
	AgendaStatus minutes.AgendaStatus `json:"agenda_status"`
	AgendaItems  int                  `json:"agenda_items"`
	TOPMentions  int                  `json:"top_mentions"`
}

// Comparison reports how two recognizers read the same document
type Comparison struct {
	MethodA     string         `json:"method_a"`
	MethodB     string         `json:"method_b"`
	Statistics  LengthStats    `json:"statistics"`
	Differences []CharDiff     `json:"character_differences"`
	Patterns    []PatternCount `json:"pattern_analysis"`
	ParsedA     ParseSummary   `json:"parsed_a"`
	ParsedB     ParseSummary   `json:"parsed_b"`
}

// Compare recognizes doc with both recognizers concurrently and compares
// the resulting texts.
func Compare(ctx context.Context, doc []byte, a, b pdf.Recognizer) (*Comparison, error) {
	var recA, recB *pdf.Recognition
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := a.Recognize(gctx, doc)
		if err != nil {
			return fmt.Errorf("first recognizer: %w", err)
		}
		recA = rec
		return nil
	})
	g.Go(func() error {
		rec, err := b.Recognize(gctx, doc)
		if err != nil {
			return fmt.Errorf("second recognizer: %w", err)
		}
		recB = rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return CompareTexts(recA.Method, recA.Text(), recB.Method, recB.Text()), nil
}

// CompareTexts compares two extractions of the same document
func CompareTexts(methodA, textA, methodB, textB string) *Comparison {
	textA = minutes.NormalizeText(textA)
	textB = minutes.NormalizeText(textB)
	a, b := []rune(textA), []rune(textB)

	c := &Comparison{
		MethodA: methodA,
		MethodB: methodB,
		Statistics: LengthStats{
			LengthA:    len(a),
			LengthB:    len(b),
			Difference: len(a) - len(b),
		},
		Differences: []CharDiff{},
		Patterns:    make([]PatternCount, 0, len(comparePatterns)),
		ParsedA:     summarize(textA),
		ParsedB:     summarize(textB),
	}

	n := min(len(a), len(b), compareWindow)
	for i := 0; i < n && len(c.Differences) < maxCharDiffs; i++ {
		if a[i] == b[i] {
			continue
		}
		c.Differences = append(c.Differences, CharDiff{
			Position: i,
			CharA:    string(a[i]),
			CharB:    string(b[i]),
			Context:  string(a[max(0, i-contextRunes):min(len(a), i+contextRunes)]),
		})
	}

	for _, p := range comparePatterns {
		hitsA, hitsB := submatches(p.pattern, textA), submatches(p.pattern, textB)
		c.Patterns = append(c.Patterns, PatternCount{
			Name:     p.name,
			CountA:   len(hitsA),
			CountB:   len(hitsB),
			MatchesA: hitsA[:min(len(hitsA), maxPatternHits)],
			MatchesB: hitsB[:min(len(hitsB), maxPatternHits)],
		})
	}
	return c
}

func submatches(re *regexp.Regexp, text string) []string {
	hits := []string{}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		hits = append(hits, m[1])
	}
	return hits
}

func summarize(text string) ParseSummary {
	rec := minutes.Parse(text, minutes.Passthrough{})
	return ParseSummary{
		TotalPresent: rec.TotalPresent,
		TotalExcused: rec.TotalExcused,
		AgendaStatus: rec.AgendaStatus,
		AgendaItems:  len(rec.AgendaItems),
		TOPMentions:  len(minutes.FindAllTOPs(text)),
	}
}
