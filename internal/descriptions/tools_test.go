package descriptions

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetToolDescription(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		contains string
	}{
		{"parse file", ToolParseFile, "Niederschrift"},
		{"parse text", ToolParseText, "--- SEITE N ---"},
		{"attendance", ToolExtractAttendance, "Anwesend:"},
		{"agenda", ToolExtractAgenda, "not_enough_tops"},
		{"search", ToolSearchDirectory, "pending_only"},
		{"validate", ToolValidateFile, "text layer"},
		{"compare", ToolCompareExtraction, "Document Intelligence"},
		{"stats", ToolAttendanceOverview, "--db"},
		{"server info", ToolServerInfo, "recognizer"},
		{"unknown", "minutes_unknown", "not available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, GetToolDescription(tt.tool), tt.contains)
		})
	}
}

func TestGetAllToolNames(t *testing.T) {
	names := GetAllToolNames()
	assert.Len(t, names, len(ToolDescriptions))
	assert.True(t, sort.StringsAreSorted(names))
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "minutes_"), name)
		assert.NotEmpty(t, strings.TrimSpace(ToolDescriptions[name]), name)
	}
}
