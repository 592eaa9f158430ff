package records

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
)

// Sheet names of the XLSX export
const (
	SheetSessions   = "Sitzungen"
	SheetAttendance = "Anwesenheit"
	SheetAgenda     = "TOPs"
)

// cell text is cut to stay below the XLSX limit of 32767 characters
const maxCellRunes = 32000

type sheetSpec struct {
	name    string
	headers []string
	widths  []float64
}

var sheets = []sheetSpec{
	{
		name: SheetSessions,
		headers: []string{
			"ID", "Datum", "Datum (Original)", "Dokumenttyp", "Sitzungsart", "Dauer", "Ort",
			"Anwesend", "Entschuldigt", "Teilnehmer", "TOP-Status", "TOPs", "Auffälligkeiten",
			"Methode", "Seiten", "Extrahiert", "Dokument",
		},
		widths: []float64{28, 22, 14, 18, 22, 16, 30, 10, 12, 11, 16, 8, 40, 26, 8, 22, 48},
	},
	{
		name:    SheetAttendance,
		headers: []string{"ID", "Datum", "Name", "Funktion", "Status"},
		widths:  []float64{28, 22, 32, 32, 12},
	},
	{
		name:    SheetAgenda,
		headers: []string{"ID", "Datum", "TOP", "Überschrift", "Vorlage", "Abstimmung", "Inhalt"},
		widths:  []float64{28, 22, 6, 48, 18, 28, 80},
	},
}

// ExportXLSX renders records into a workbook with one sheet for sessions,
// attendance and agenda items each
func ExportXLSX(recs []minutes.DocumentRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	rows := map[string]int{}
	for i, spec := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", spec.name); err != nil {
				return nil, fmt.Errorf("xlsx sheet: %w", err)
			}
		} else if _, err := f.NewSheet(spec.name); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}
		if err := writeRow(f, spec.name, 1, toAny(spec.headers)); err != nil {
			return nil, err
		}
		for col, w := range spec.widths {
			name, _ := excelize.ColumnNumberToName(col + 1)
			_ = f.SetColWidth(spec.name, name, name, w)
		}
		rows[spec.name] = 2
	}

	for _, rec := range recs {
		date := deref(rec.Date)
		session := []any{
			rec.ID, date, deref(rec.DateRaw), deref(rec.DocumentType), deref(rec.SessionType),
			deref(rec.Duration), deref(rec.Location),
			rec.TotalPresent, rec.TotalExcused, rec.TotalParticipants,
			string(rec.AgendaStatus), len(rec.AgendaItems), strings.Join(rec.AgendaAnomalies, "; "),
			rec.AnalysisMethod, rec.TotalPages, rec.ExtractionTimestamp, rec.DocumentPath,
		}
		if err := appendRow(f, rows, SheetSessions, session); err != nil {
			return nil, err
		}

		for _, group := range [][]minutes.AttendanceEntry{rec.AttendancePresent, rec.AttendanceExcused} {
			for _, a := range group {
				if err := appendRow(f, rows, SheetAttendance, []any{rec.ID, date, a.Name, a.Role, statusLabel(a.Status)}); err != nil {
					return nil, err
				}
			}
		}

		for _, it := range rec.AgendaItems {
			item := []any{rec.ID, date, it.Number, it.Heading, deref(it.ReferenceTag), deref(it.VoteOutcome), truncate(it.Body, maxCellRunes)}
			if err := appendRow(f, rows, SheetAgenda, item); err != nil {
				return nil, err
			}
		}
	}

	for _, spec := range sheets {
		_ = f.SetPanes(spec.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func appendRow(f *excelize.File, rows map[string]int, sheet string, values []any) error {
	row := rows[sheet]
	rows[sheet] = row + 1
	return writeRow(f, sheet, row, values)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func statusLabel(s minutes.AttendanceStatus) string {
	if s == minutes.StatusExcused {
		return "entschuldigt"
	}
	return "anwesend"
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
