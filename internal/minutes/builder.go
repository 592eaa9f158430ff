package minutes

import (
	"path/filepath"
	"strings"
	"time"
)

// Build assembles the passes' outputs into a DocumentRecord. It never fails:
// attendanceErr and a non-ok agenda status are reported as fields.
func Build(meta DocumentMetadata, attendance AttendanceRecord, attendanceErr error, agenda AgendaResult, pt Passthrough) DocumentRecord {
	rec := DocumentRecord{
		ID:                documentID(pt.DocumentPath),
		DocumentType:      meta.DocumentType,
		SessionType:       meta.SessionType,
		DateRaw:           meta.Date,
		Duration:          meta.Duration,
		Location:          meta.Location,
		AttendancePresent: flatten(attendance.Present, StatusPresent),
		AttendanceExcused: flatten(attendance.Excused, StatusExcused),
		TotalPresent:      attendance.TotalPresent(),
		TotalExcused:      attendance.TotalExcused(),
		AgendaStatus:      agenda.Status,
		AgendaListing:     nonNilEntries(agenda.Listing),
		AgendaItems:       nonNilItems(agenda.Items),
		LayoutTOPs:        LayoutTOPs(pt.Lines),
		AnalysisMethod:    pt.AnalysisMethod,
		TotalPages:        pt.TotalPages,
		DocumentPath:      pt.DocumentPath,
	}
	rec.TotalParticipants = rec.TotalPresent + rec.TotalExcused

	if meta.Date != nil {
		rec.Date = strPtr(ConvertDateToISO(*meta.Date))
	}
	if attendanceErr != nil {
		rec.AttendanceError = strPtr(attendanceErr.Error())
	}
	if agenda.Status == "" {
		rec.AgendaStatus = AgendaNotFound
	}
	if rec.AgendaStatus == AgendaOK {
		rec.AgendaText = strPtr(agenda.Text)
	}
	rec.AgendaAnomalies = ReconcileAgenda(rec.AgendaListing, rec.AgendaItems)

	ts := pt.ExtractionTimestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	rec.ExtractionTimestamp = ts.UTC().Format(time.RFC3339)

	return rec
}

// Parse normalizes text and runs every pass over it.
func Parse(text string, pt Passthrough) DocumentRecord {
	text = NormalizeText(text)

	attendance, err := ExtractAttendance(text)
	rec := Build(ExtractMetadata(text), attendance, err, ExtractAgendaResult(text), pt)
	rec.FullText = strings.TrimSpace(StripPageMarkers(text))
	return rec
}

// ParseLines joins recognized lines page by page and parses the result.
func ParseLines(lines []RecognizedLine, pt Passthrough) DocumentRecord {
	if pt.Lines == nil {
		pt.Lines = lines
	}
	return Parse(JoinPages(lines), pt)
}

// documentID is the file name of the source document without extension.
func documentID(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func nonNilEntries(entries []AgendaEntry) []AgendaEntry {
	if entries == nil {
		return []AgendaEntry{}
	}
	return entries
}

func nonNilItems(items []AgendaItem) []AgendaItem {
	if items == nil {
		return []AgendaItem{}
	}
	return items
}
