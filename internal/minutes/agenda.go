package minutes

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// topOccurrence is one "TOP <n>" match, offsets relative to the full text.
type topOccurrence struct {
	Number string
	Start  int
	End    int
}

// agendaLayout is the result of the listing/resolution disambiguation.
type agendaLayout struct {
	anchorEnd int
	boundary  int
}

// locateAgenda finds the agenda anchor and the start of the resolution
// section. The resolution repeats the numbering of the listing, so the
// boundary is the first later "TOP 1" whose lookahead window is identical to
// the window after the first "TOP 1".
func locateAgenda(text string) (agendaLayout, error) {
	anchor := agendaStart.FindStringIndex(text)
	if anchor == nil {
		return agendaLayout{}, sectionNotFound("agenda", "no \"TAGESORDNUNG\" anchor")
	}

	tops := collectTOPs(text, anchor[1])
	if len(tops) < 2 {
		return agendaLayout{}, &ParseError{
			Kind:    KindNotEnoughTOPs,
			Section: "agenda",
			Detail:  "fewer than two TOP occurrences after the anchor",
		}
	}

	first := -1
	for i, top := range tops {
		if top.Number != "1" {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		fingerprint := runeWindow(text, tops[first].End, fingerprintWidth)
		if runeWindow(text, top.End, fingerprintWidth) == fingerprint {
			return agendaLayout{anchorEnd: anchor[1], boundary: top.Start}, nil
		}
	}

	return agendaLayout{}, &ParseError{
		Kind:    KindAmbiguousBoundary,
		Section: "agenda",
		Detail:  "no repeated TOP 1 with a matching heading",
	}
}

func collectTOPs(text string, from int) []topOccurrence {
	var tops []topOccurrence
	for _, m := range topPattern.FindAllStringSubmatchIndex(text[from:], -1) {
		tops = append(tops, topOccurrence{
			Number: text[from+m[2] : from+m[3]],
			Start:  from + m[0],
			End:    from + m[1],
		})
	}
	return tops
}

// ExtractAgenda returns the cleaned agenda listing between the
// "TAGESORDNUNG" anchor and the start of the resolution section.
func ExtractAgenda(text string) (string, error) {
	layout, err := locateAgenda(text)
	if err != nil {
		return "", err
	}
	return CleanSection(text[layout.anchorEnd:layout.boundary]), nil
}

// ExtractTopContents splits the resolution section into one AgendaItem per
// TOP number. It returns an empty slice when the section cannot be located.
func ExtractTopContents(text string) []AgendaItem {
	layout, err := locateAgenda(text)
	if err != nil {
		return []AgendaItem{}
	}
	return parseResolution(resolutionSection(text, layout.boundary))
}

// resolutionSection runs from the boundary to the signature block, or to the
// end of the text when no signature marker is present.
func resolutionSection(text string, boundary int) string {
	section := text[boundary:]
	if _, loc := firstMatch(resolutionEndRules, section); loc != nil {
		section = section[:loc[0]]
	}
	return section
}

func parseResolution(section string) []AgendaItem {
	section = CleanSection(section)
	markers := topLinePattern.FindAllStringSubmatchIndex(section, -1)

	items := []AgendaItem{}
	index := make(map[string]int)
	for i, m := range markers {
		end := len(section)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		number := section[m[2]:m[3]]
		item := parseSegment(number, section[m[1]:end])

		// Page-break duplicates of a TOP header continue the earlier item.
		if pos, seen := index[number]; seen {
			items[pos] = mergeItems(items[pos], item)
			continue
		}
		index[number] = len(items)
		items = append(items, item)
	}
	return items
}

// parseSegment decomposes the text following a "TOP <n>" marker.
func parseSegment(number, segment string) AgendaItem {
	lines := strings.Split(segment, "\n")

	headingLines := []string{}
	if first := strings.TrimSpace(lines[0]); first != "" {
		headingLines = append(headingLines, first)
	}
	rest := lines[1:]
	for len(rest) > 0 {
		raw := rest[0]
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(headingLines) == 0 {
				rest = rest[1:]
				continue
			}
			break
		}
		if headingStopPattern.MatchString(line) {
			break
		}
		if len(headingLines) > 0 && !isHeadingContinuation(raw) {
			break
		}
		headingLines = append(headingLines, line)
		rest = rest[1:]
	}

	item := AgendaItem{Number: number, Heading: strings.Join(headingLines, "\n")}

	bodyLines := make([]string, 0, len(rest))
	for _, raw := range rest {
		line := strings.TrimSpace(raw)
		if item.ReferenceTag == nil && referenceTagLine.MatchString(line) {
			item.ReferenceTag = strPtr(line)
			continue
		}
		bodyLines = append(bodyLines, raw)
	}

	body := strings.Join(bodyLines, "\n")
	body, item.VoteOutcome = extractVoteOutcome(body)
	item.Body = tidyBody(body)
	return item
}

// isHeadingContinuation reports short or indented lines.
func isHeadingContinuation(raw string) bool {
	if strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t") {
		return true
	}
	return utf8.RuneCountInString(strings.TrimSpace(raw)) <= headingContinuationWidth &&
		!strings.HasSuffix(strings.TrimSpace(raw), ".")
}

// extractVoteOutcome isolates the first vote result found by the ordered
// outcome rules and removes it from the body.
func extractVoteOutcome(body string) (string, *string) {
	_, loc := firstMatch(voteOutcomeRules, body)
	if loc == nil {
		return body, nil
	}
	outcome := strings.TrimSpace(body[loc[0]:loc[1]])
	return body[:loc[0]] + "\n" + body[loc[1]:], strPtr(outcome)
}

func tidyBody(body string) string {
	body = repeatedBlankLines.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

func mergeItems(first, dup AgendaItem) AgendaItem {
	if first.ReferenceTag == nil {
		first.ReferenceTag = dup.ReferenceTag
	}
	if first.VoteOutcome == nil {
		first.VoteOutcome = dup.VoteOutcome
	}
	// The repeated header line usually restates the heading; keep its remainder as body.
	parts := []string{}
	if first.Body != "" {
		parts = append(parts, first.Body)
	}
	if dup.Heading != "" && dup.Heading != first.Heading {
		parts = append(parts, dup.Heading)
	}
	if dup.Body != "" {
		parts = append(parts, dup.Body)
	}
	first.Body = strings.Join(parts, "\n\n")
	return first
}

// ParseAgendaListing reads the "TOP <n> title" lines of a cleaned agenda text.
func ParseAgendaListing(agenda string) []AgendaEntry {
	entries := []AgendaEntry{}
	markers := topLinePattern.FindAllStringSubmatchIndex(agenda, -1)
	for i, m := range markers {
		end := len(agenda)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		title := strings.Join(strings.Fields(agenda[m[1]:end]), " ")
		entries = append(entries, AgendaEntry{Number: agenda[m[2]:m[3]], Title: title})
	}
	return entries
}

// ReconcileAgenda lists the TOP numbers that appear in only one of the
// agenda listing and the resolution section.
func ReconcileAgenda(listing []AgendaEntry, items []AgendaItem) []string {
	listed := make(map[string]bool, len(listing))
	for _, e := range listing {
		listed[e.Number] = true
	}
	resolved := make(map[string]bool, len(items))
	anomalies := []string{}
	for _, it := range items {
		resolved[it.Number] = true
		if !listed[it.Number] {
			anomalies = append(anomalies, "TOP "+it.Number+" missing from agenda listing")
		}
	}
	for _, e := range listing {
		if !resolved[e.Number] {
			anomalies = append(anomalies, "TOP "+e.Number+" missing from resolution section")
		}
	}
	return anomalies
}

// ExtractAgendaResult runs the whole agenda pass and never fails.
func ExtractAgendaResult(text string) AgendaResult {
	layout, err := locateAgenda(text)
	if err != nil {
		status := AgendaNotFound
		if errors.Is(err, ErrNotEnoughTOPs) {
			status = AgendaNotEnoughTOPs
		}
		return AgendaResult{Status: status, Listing: []AgendaEntry{}, Items: []AgendaItem{}}
	}
	agenda := CleanSection(text[layout.anchorEnd:layout.boundary])
	return AgendaResult{
		Status:  AgendaOK,
		Text:    agenda,
		Listing: ParseAgendaListing(agenda),
		Items:   parseResolution(resolutionSection(text, layout.boundary)),
	}
}

// FindAllTOPs lists every "TOP <n>" line fragment in the text, including
// incomplete ones.
func FindAllTOPs(text string) []string {
	return allTOPsPattern.FindAllString(text, -1)
}

// LayoutTOPs picks the recognized lines that start a TOP ("TOP n:").
func LayoutTOPs(lines []RecognizedLine) []LayoutTOP {
	tops := []LayoutTOP{}
	for _, l := range lines {
		if layoutTOPPattern.MatchString(l.Content) {
			tops = append(tops, LayoutTOP{
				Content:    l.Content,
				PageNumber: l.PageNumber,
				Polygon:    l.Polygon,
				Confidence: l.Confidence,
			})
		}
	}
	return tops
}
