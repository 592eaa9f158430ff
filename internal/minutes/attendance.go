package minutes

import (
	"strings"
)

// ExtractAttendance locates the attendance block and parses its present and
// excused parts. A document without an "Anwesend:" anchor yields an error
// matching ErrSectionNotFound and an empty record.
func ExtractAttendance(text string) (AttendanceRecord, error) {
	present, excused, err := attendanceBlocks(text)
	if err != nil {
		return AttendanceRecord{}, err
	}
	return AttendanceRecord{
		Present: ParseAttendanceSection(present),
		Excused: ParseAttendanceSection(excused),
	}, nil
}

// attendanceBlocks returns the raw present and excused sub-blocks.
func attendanceBlocks(text string) (string, string, error) {
	start := attendanceStart.FindStringIndex(text)
	if start == nil {
		return "", "", sectionNotFound("attendance", "no \"Anwesend:\" anchor")
	}

	rest := text[start[1]:]
	_, end := firstMatch(attendanceEndRules, rest)
	block := rest[:end[0]]

	_, split := firstMatch(excusedRules, block)
	if split == nil {
		return block, "", nil
	}
	return block[:split[0]], block[split[1]:], nil
}

// lineKind is the classification of a single attendance line
type lineKind int

const (
	lineSkip lineKind = iota
	lineRoleHeading
	linePerson
	lineOther
)

func classifyLine(line string) lineKind {
	switch {
	case line == "", isNoiseLine(line):
		return lineSkip
	case roleHeadingPattern.MatchString(line):
		return lineRoleHeading
	case personPattern.MatchString(line):
		return linePerson
	default:
		return lineOther
	}
}

// attendanceState is threaded through the fold over the lines of one block.
type attendanceState struct {
	currentRole string
	hasRole     bool
	groups      []AttendanceGroup
}

// step applies one trimmed line to the state and returns the new state.
func step(state attendanceState, line string) attendanceState {
	switch classifyLine(line) {
	case lineRoleHeading:
		state.currentRole = line
		state.hasRole = true
		state.groups = append(state.groups, AttendanceGroup{Role: line, Members: []string{}})

	case linePerson:
		if len(state.groups) > 0 {
			last := &state.groups[len(state.groups)-1]
			last.Members = append(last.Members, line)
		} else {
			state.groups = append(state.groups, AttendanceGroup{Role: UnknownRole, Members: []string{line}})
		}

	case lineOther:
		if !state.hasRole || !acceptsUnprefixedNames(state.currentRole) || len(state.groups) == 0 {
			break
		}
		last := &state.groups[len(state.groups)-1]
		if last.Role == state.currentRole {
			last.Members = append(last.Members, line)
		}
	}
	return state
}

// acceptsUnprefixedNames reports roles whose members are listed without a
// STV/Stadtrat style prefix, such as the minute taker and administration staff.
func acceptsUnprefixedNames(role string) bool {
	return strings.Contains(role, "Schriftführer") || strings.Contains(role, "Verwaltung")
}

// ParseAttendanceSection classifies the lines of one sub-block into role
// groups, in document order.
func ParseAttendanceSection(text string) []AttendanceGroup {
	state := attendanceState{groups: []AttendanceGroup{}}
	for _, line := range strings.Split(text, "\n") {
		state = step(state, strings.TrimSpace(line))
	}
	return state.groups
}

// CleanAttendanceSection keeps only the lines that take part in
// classification, trimmed. Parsing its output yields the same groups as
// parsing the original block.
func CleanAttendanceSection(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if classifyLine(line) != lineSkip {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// FindAttendanceMentions lists every person-like line anywhere in the text.
func FindAttendanceMentions(text string) []string {
	return attendanceMention.FindAllString(text, -1)
}
