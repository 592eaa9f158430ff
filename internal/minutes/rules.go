package minutes

import (
	"regexp"
)

// patternRule is one entry of an ordered fallback list. Rules are tried in
// list order and the first one that matches wins, regardless of where in the
// text the match sits. A nil Pattern always matches at the end of the text.
// Matches whose text also matches Skip are passed over.
type patternRule struct {
	Name    string
	Pattern *regexp.Regexp
	Skip    *regexp.Regexp
}

// firstMatch returns the name and byte range of the first matching rule.
func firstMatch(rules []patternRule, text string) (string, []int) {
	for _, rule := range rules {
		if rule.Pattern == nil {
			return rule.Name, []int{len(text), len(text)}
		}
		if rule.Skip == nil {
			if loc := rule.Pattern.FindStringIndex(text); loc != nil {
				return rule.Name, loc
			}
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			if !rule.Skip.MatchString(text[loc[0]:loc[1]]) {
				return rule.Name, loc
			}
		}
	}
	return "", nil
}

var attendanceStart = regexp.MustCompile(`(?i)Anwesend:`)

// attendanceEndRules delimit the attendance block, most specific first.
// OCR reflow sometimes drops or moves the Tagesordnung anchor, hence the chain.
var attendanceEndRules = []patternRule{
	{Name: "tagesordnung", Pattern: regexp.MustCompile(`(?m)^[ \t]*(?:TAGESORDNUNG|Tagesordnung):`)},
	{Name: "top_one", Pattern: regexp.MustCompile(`TOP[ \t]+1(?:[^0-9]|$)`)},
	// excused and absent headings belong to the block
	{
		Name:    "heading",
		Pattern: regexp.MustCompile(`(?m)^[ \t]*[A-ZÄÖÜ][A-ZÄÖÜß \t-]{3,}:[ \t]*$`),
		Skip:    regexp.MustCompile(`(?i)^[ \t]*(?:ENTSCHULDIGT|ABWESEND)\b`),
	},
	{Name: "end_of_text"},
}

// excusedRules split the attendance block into present and excused parts.
var excusedRules = []patternRule{
	{Name: "entschuldigt", Pattern: regexp.MustCompile(`(?i)Entschuldigt:`)},
	{Name: "entschuldigt_line", Pattern: regexp.MustCompile(`(?im)^[ \t]*Entschuldigt\b[^\n]*`)},
	{Name: "abwesend", Pattern: regexp.MustCompile(`(?i)Abwesend:`)},
}

var (
	roleHeadingPattern = regexp.MustCompile(`(?i)^(?:Von der|Vom|Schriftführer)`)
	personPattern      = regexp.MustCompile(`(?i)^(?:STV|Stadtrat|Bürgermeister|Erster Stadtrat)`)
)

var (
	agendaStart      = regexp.MustCompile(`(?i)TAGESORDNUNG:?`)
	topPattern       = regexp.MustCompile(`\bTOP[ \t]+(\d+(?:\.\d+)?)`)
	topLinePattern   = regexp.MustCompile(`(?m)^[ \t]*TOP[ \t]+(\d+(?:\.\d+)?)[ \t]*:?`)
	layoutTOPPattern = regexp.MustCompile(`^TOP\s\d+:`)
	allTOPsPattern   = regexp.MustCompile(`(?i)TOP\s\d+[^\n]*`)
)

// fingerprintWidth is the lookahead window, in runes, compared to tell the
// resolution "TOP 1" apart from the agenda listing copy.
const fingerprintWidth = 50

// resolutionEndRules find the signature block that closes the resolution section.
var resolutionEndRules = []patternRule{
	{Name: "vorsitzende", Pattern: regexp.MustCompile(`(?m)^[ \t]*Die Vorsitzende[^\n]*(?:\n[^\n]*){0,3}Schriftführer`)},
	{Name: "unterschriften", Pattern: regexp.MustCompile(`(?m)^[ \t]*Unterschriften\b`)},
	{Name: "gez", Pattern: regexp.MustCompile(`gez\.[^\n]*(?:\n[^\n]*){0,2}gez\.`)},
}

// voteOutcomeRules locate a vote result inside a TOP body. Each outcome runs
// to the next blank line or the end of the body.
var voteOutcomeRules = []patternRule{
	{Name: "abstimmungsergebnis", Pattern: regexp.MustCompile(`(?s)Abstimmungsergebnis:.*?(?:\n[ \t]*\n|\z)`)},
	{Name: "abstimmung", Pattern: regexp.MustCompile(`(?s)Abstimmung:.*?(?:\n[ \t]*\n|\z)`)},
	{Name: "einstimmig", Pattern: regexp.MustCompile(`(?is)Einstimmig beschlossen.*?(?:\n[ \t]*\n|\z)`)},
	{Name: "mehrheit", Pattern: regexp.MustCompile(`(?is)Mit Stimmenmehrheit beschlossen.*?(?:\n[ \t]*\n|\z)`)},
}

var (
	headingStopPattern = regexp.MustCompile(`^(?:Vorlage:|Die Stadtverordneten)`)
	referenceTagLine   = regexp.MustCompile(`^Vorlage:`)
)

// headingContinuationWidth bounds the length of lines that still count as
// part of a multi-line TOP heading.
const headingContinuationWidth = 80

var (
	documentTypePattern = regexp.MustCompile(`(?i)NIEDERSCHRIFT`)
	sessionTypePattern  = regexp.MustCompile(`(?i)über die Sitzung der ([^\n]+) der Stadt Pohlheim`)
	datePattern         = regexp.MustCompile(`(?i)Tag:\s*([^\n]+)`)
	durationPattern     = regexp.MustCompile(`(?i)Dauer:\s*([^\n]+)`)
	locationPattern     = regexp.MustCompile(`(?i)Ort:\s*([^\n]+)`)
	germanDatePattern   = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`)
	attendanceMention   = regexp.MustCompile(`(?i)(?:STV|Stadtrat|Bürgermeister|Erster Stadtrat)[ \t]+[^\n]+`)
)

// DocumentTypeLabel is the fixed document type for council minutes
const DocumentTypeLabel = "Niederschrift"
