package minutes

import (
	"regexp"
	"strings"
	"time"
)

// ExtractMetadata pulls the fixed single-value fields out of the text.
// Every field is independent; a missing anchor leaves the field nil.
func ExtractMetadata(text string) DocumentMetadata {
	var meta DocumentMetadata

	if documentTypePattern.MatchString(text) {
		meta.DocumentType = strPtr(DocumentTypeLabel)
	}
	meta.SessionType = captureField(sessionTypePattern, text)
	meta.Date = captureField(datePattern, text)
	meta.Duration = captureField(durationPattern, text)
	meta.Location = captureField(locationPattern, text)

	return meta
}

func captureField(pattern *regexp.Regexp, text string) *string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return strPtr(strings.TrimSpace(m[1]))
}

// ConvertDateToISO turns a German D.M.YYYY or DD.MM.YYYY date into
// YYYY-MM-DDT00:00:00Z. Anything else is returned unchanged.
func ConvertDateToISO(date string) string {
	iso, err := parseGermanDate(date)
	if err != nil {
		return date
	}
	return iso
}

func parseGermanDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if !germanDatePattern.MatchString(date) {
		return "", &ParseError{Kind: KindMalformedDate, Section: "date", Detail: date}
	}
	t, err := time.Parse("2.1.2006", date)
	if err != nil {
		return "", &ParseError{Kind: KindMalformedDate, Section: "date", Detail: date}
	}
	return t.Format("2006-01-02") + "T00:00:00Z", nil
}
