package minutes

import (
	"time"
)

// Point is a page-relative coordinate, both axes in the range [0,1]
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RecognizedLine is one line of text as delivered by a recognizer
type RecognizedLine struct {
	Content    string   `json:"content"`
	PageNumber int      `json:"page_number"`
	Polygon    []Point  `json:"polygon,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// DocumentMetadata holds the single-value fields found near the document head.
// A nil field means its anchor phrase was not present.
type DocumentMetadata struct {
	DocumentType *string `json:"document_type"`
	SessionType  *string `json:"session_type"`
	Date         *string `json:"date"`
	Duration     *string `json:"duration"`
	Location     *string `json:"location"`
}

// AttendanceStatus marks whether a person attended or was excused
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusExcused AttendanceStatus = "excused"
)

// UnknownRole is the role assigned to persons listed before any role heading
const UnknownRole = "Unbekannt"

// AttendanceGroup is a role heading together with the persons listed under it
type AttendanceGroup struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

// AttendanceRecord keeps the present and excused groups in document order
type AttendanceRecord struct {
	Present []AttendanceGroup `json:"present"`
	Excused []AttendanceGroup `json:"excused"`
}

// AttendanceEntry is the flattened view of a single person
type AttendanceEntry struct {
	Name   string           `json:"name"`
	Role   string           `json:"function"`
	Status AttendanceStatus `json:"status"`
}

// Entries flattens the groups into one list, present persons first.
func (r AttendanceRecord) Entries() []AttendanceEntry {
	entries := flatten(r.Present, StatusPresent)
	return append(entries, flatten(r.Excused, StatusExcused)...)
}

// TotalPresent returns the number of present persons over all groups
func (r AttendanceRecord) TotalPresent() int {
	return countMembers(r.Present)
}

// TotalExcused returns the number of excused persons over all groups
func (r AttendanceRecord) TotalExcused() int {
	return countMembers(r.Excused)
}

func flatten(groups []AttendanceGroup, status AttendanceStatus) []AttendanceEntry {
	entries := []AttendanceEntry{}
	for _, g := range groups {
		for _, m := range g.Members {
			entries = append(entries, AttendanceEntry{Name: m, Role: g.Role, Status: status})
		}
	}
	return entries
}

func countMembers(groups []AttendanceGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Members)
	}
	return n
}

// AgendaEntry is one line of the table-of-contents style agenda listing
type AgendaEntry struct {
	Number string `json:"number"`
	Title  string `json:"title"`
}

// AgendaItem is one TOP of the resolution section
type AgendaItem struct {
	Number       string  `json:"number"`
	Heading      string  `json:"heading"`
	ReferenceTag *string `json:"reference_tag"`
	Body         string  `json:"body"`
	VoteOutcome  *string `json:"vote_outcome"`
}

// LayoutTOP is a TOP line found directly in the recognizer output
type LayoutTOP struct {
	Content    string   `json:"content"`
	PageNumber int      `json:"page_number"`
	Polygon    []Point  `json:"position,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// AgendaStatus reports how far agenda extraction got
type AgendaStatus string

const (
	AgendaOK            AgendaStatus = "ok"
	AgendaNotFound      AgendaStatus = "not_found"
	AgendaNotEnoughTOPs AgendaStatus = "not_enough_tops"
)

// AgendaResult bundles everything the agenda pass produces for one document
type AgendaResult struct {
	Status  AgendaStatus
	Text    string
	Listing []AgendaEntry
	Items   []AgendaItem
}

// Passthrough carries values the parser does not derive from the text
type Passthrough struct {
	DocumentPath        string
	AnalysisMethod      string
	TotalPages          int
	ExtractionTimestamp time.Time
	Lines               []RecognizedLine
}

// DocumentRecord is the terminal output for one document
type DocumentRecord struct {
	ID                  string            `json:"id"`
	DocumentType        *string           `json:"document_type"`
	SessionType         *string           `json:"session_type"`
	Date                *string           `json:"date"`
	DateRaw             *string           `json:"date_raw"`
	Duration            *string           `json:"duration"`
	Location            *string           `json:"location"`
	AttendancePresent   []AttendanceEntry `json:"attendance_present"`
	AttendanceExcused   []AttendanceEntry `json:"attendance_excused"`
	TotalPresent        int               `json:"total_present"`
	TotalExcused        int               `json:"total_excused"`
	TotalParticipants   int               `json:"total_participants"`
	AttendanceError     *string           `json:"attendance_error"`
	AgendaStatus        AgendaStatus      `json:"agenda_status"`
	AgendaText          *string           `json:"agenda_text"`
	AgendaListing       []AgendaEntry     `json:"agenda_listing"`
	AgendaItems         []AgendaItem      `json:"agenda_items"`
	AgendaAnomalies     []string          `json:"agenda_anomalies"`
	LayoutTOPs          []LayoutTOP       `json:"layout_tops"`
	AnalysisMethod      string            `json:"analysis_method"`
	TotalPages          int               `json:"total_pages"`
	ExtractionTimestamp string            `json:"extraction_timestamp"`
	DocumentPath        string            `json:"document_path"`
	FullText            string            `json:"full_text"`
}
