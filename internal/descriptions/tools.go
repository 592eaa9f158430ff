package descriptions

import "sort"

// Tool names exposed by the MCP server
const (
	ToolParseFile          = "minutes_parse_file"
	ToolParseText          = "minutes_parse_text"
	ToolExtractAttendance  = "minutes_extract_attendance"
	ToolExtractAgenda      = "minutes_extract_agenda"
	ToolSearchDirectory    = "minutes_search_directory"
	ToolValidateFile       = "minutes_validate_file"
	ToolCompareExtraction  = "minutes_compare_extraction"
	ToolServerInfo         = "minutes_server_info"
	ToolAttendanceOverview = "minutes_attendance_stats"
)

const (
	ParseFileDescription = `Parse a council minutes PDF (Niederschrift) into one structured record.

**When to use:** You have a minutes PDF in the configured directory and need its session metadata, attendance and agenda items.

**What you get:** JSON with document type, session type, date (ISO and raw), duration, location, present and excused attendees with their group, agenda status, agenda listing, one entry per TOP with heading, Vorlage reference and vote outcome, layout TOP lines with page positions, and the full text.

**Examples:**
• "Parse 2023/stv-2023-03-14.pdf"
• "Parse 2023/stv-2023-03-14.pdf and store the result" (store=true writes <name>.json and the database row)

**Notes:** A stored <pdf>.ocr.json recognition sidecar is reused. Scans without a text layer need the layout recognizer; run minutes_validate_file first when unsure.`

	ParseTextDescription = `Parse already extracted minutes text into a structured record.

**When to use:** The text of a Niederschrift is available from another source, for example copied from a viewer or produced by a separate OCR run.

**What you get:** The same record as minutes_parse_file, without page count and layout information.

**Notes:** Page separators of the form "--- SEITE N ---" are understood and removed from the full text.`

	ExtractAttendanceDescription = `Extract only the attendance section of a minutes document.

**When to use:** You need who was present or excused, grouped by faction or role ("Von der CDU-Fraktion:", "Vom Magistrat:", "Schriftführer:").

**Input:** Either text or path. With path the document is recognized like in minutes_parse_file.

**What you get:** Present and excused groups with their members, the totals, and an error message when no "Anwesend:" section exists.`

	ExtractAgendaDescription = `Extract the agenda (Tagesordnung) and the resolution part of a minutes document.

**When to use:** You need the list of TOPs and, for each TOP, its heading, Vorlage number, decision text and vote result.

**Input:** Either text or path.

**What you get:** agenda status (ok, not_found, not_enough_tops), the cleaned agenda text, the listing, the parsed items and anomalies where listing and resolution part disagree.`

	SearchDirectoryDescription = `List minutes PDFs in the configured directory with optional fuzzy filename search.

**When to use:** Find documents to parse, or see which documents have not been processed yet.

**Examples:**
• "Which minutes from 2023 are there?" (query="2023")
• "Which documents are still pending?" (pending_only=true)

**What you get:** File names relative to the directory, size, modification time, whether a result JSON and an OCR sidecar exist.`

	ValidateFileDescription = `Check that a PDF is readable and whether it carries a text layer.

**When to use:** Before parsing unknown files, or to decide between the local and the layout recognizer.

**What you get:** Validity, page count, PDF version, encryption flag, text layer presence and the recommended recognizer.`

	CompareExtractionDescription = `Compare the local text layer with the hosted layout analysis for one PDF.

**When to use:** Judging recognition quality of a document or a batch before choosing a recognizer.

**What you get:** Text lengths, the first character differences with context, counts of landmark patterns (Anwesend, Tagesordnung, TOP numbers, dates, times, place) and a short parse summary for both texts.

**Notes:** Requires the Document Intelligence endpoint and key.`

	AttendanceStatsDescription = `Summarize attendance per person over all stored sessions.

**When to use:** Questions like "How often was STV Mueller excused in 2023?" after documents were parsed with store=true or by a batch run.

**What you get:** One row per name with present, excused and session counts.

**Notes:** Requires the database (--db).`

	ServerInfoDescription = `Show server configuration, available tools and pending documents.

**When to use:** At the start of a session to learn the configured directory, the active recognizer and which documents still need processing.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolParseFile:          ParseFileDescription,
	ToolParseText:          ParseTextDescription,
	ToolExtractAttendance:  ExtractAttendanceDescription,
	ToolExtractAgenda:      ExtractAgendaDescription,
	ToolSearchDirectory:    SearchDirectoryDescription,
	ToolValidateFile:       ValidateFileDescription,
	ToolCompareExtraction:  CompareExtractionDescription,
	ToolAttendanceOverview: AttendanceStatsDescription,
	ToolServerInfo:         ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
