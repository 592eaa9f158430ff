package records

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
)

func sampleRecord(path, date string) minutes.DocumentRecord {
	text := "NIEDERSCHRIFT\nüber die Sitzung der Stadtverordnetenversammlung der Stadt Pohlheim\n" +
		"Tag: " + date + "\nOrt: Rathaus\n" +
		"Anwesend:\nVom Magistrat:\nBürgermeister Müller\nVon der Fraktion SPD:\nSTV Schmidt\n" +
		"Entschuldigt:\nVon der Fraktion CDU:\nSTV Weber\n" +
		"TAGESORDNUNG:\nTOP 1: Eröffnung der Sitzung und Feststellung der Beschlussfähigkeit\nTOP 2: Haushalt 2024\n" +
		"TOP 1: Eröffnung der Sitzung und Feststellung der Beschlussfähigkeit\nDer Vorsitzende eröffnet die Sitzung.\n" +
		"TOP 2: Haushalt 2024\nVorlage: STV/2023/01\nEinstimmig beschlossen.\n"
	return minutes.Parse(text, minutes.Passthrough{
		DocumentPath:        path,
		AnalysisMethod:      "Local",
		TotalPages:          2,
		ExtractionTimestamp: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	})
}

func TestValidate(t *testing.T) {
	rec := sampleRecord("2023/stv-01.pdf", "14.03.2023")
	require.Equal(t, minutes.AgendaOK, rec.AgendaStatus)
	require.Len(t, rec.AgendaItems, 2)
	require.NoError(t, Validate(rec))

	empty := minutes.Parse("", minutes.Passthrough{DocumentPath: "empty.pdf"})
	assert.NoError(t, Validate(empty))

	broken := rec
	broken.AgendaStatus = "maybe"
	assert.ErrorContains(t, Validate(broken), "does not match schema")

	broken = rec
	broken.AttendancePresent = []minutes.AttendanceEntry{{Name: "", Role: "Vorsitzender", Status: minutes.StatusPresent}}
	assert.Error(t, Validate(broken))

	broken = rec
	broken.ExtractionTimestamp = "gestern"
	assert.Error(t, Validate(broken))

	assert.Error(t, ValidateJSON([]byte(`{"id": 1}`)))
	assert.Error(t, ValidateJSON([]byte(`not json`)))
	assert.True(t, json.Valid(Schema()))
}

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_Records(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	runID := uuid.NewString()
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.StartRun(ctx, runID, started))

	first := sampleRecord("2023/stv-02.pdf", "2.5.2023")
	second := sampleRecord("2023/stv-01.pdf", "14.03.2023")
	require.NoError(t, repo.SaveRecord(ctx, runID, first))
	require.NoError(t, repo.SaveRecord(ctx, runID, second))
	// replacing keeps one row per document
	require.NoError(t, repo.SaveRecord(ctx, "", second))

	got, err := repo.GetRecord(ctx, "2023/stv-01.pdf")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = repo.GetRecord(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2023/stv-01.pdf", all[0].DocumentPath)
	assert.Equal(t, "2023/stv-02.pdf", all[1].DocumentPath)

	stats, err := repo.AttendanceStats(ctx)
	require.NoError(t, err)
	byName := map[string]PersonStats{}
	for _, s := range stats {
		byName[s.Name] = s
	}
	assert.Equal(t, PersonStats{Name: "Bürgermeister Müller", Present: 2, Sessions: 2}, byName["Bürgermeister Müller"])
	assert.Equal(t, PersonStats{Name: "STV Weber", Excused: 2, Sessions: 2}, byName["STV Weber"])

	require.NoError(t, repo.FinishRun(ctx, Run{ID: runID, FinishedAt: started.Add(time.Minute), Total: 2, Succeeded: 2}))
	run, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Succeeded)
	assert.True(t, run.StartedAt.Equal(started))
	assert.True(t, run.FinishedAt.Equal(started.Add(time.Minute)))

	assert.Error(t, repo.FinishRun(ctx, Run{ID: "unknown"}))
	_, err = repo.GetRun(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_SaveRecordErrors(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	assert.Error(t, repo.SaveRecord(ctx, "", minutes.DocumentRecord{}))
	// run ids must come from StartRun
	assert.Error(t, repo.SaveRecord(ctx, "not-started", sampleRecord("a.pdf", "1.1.2024")))
}

func TestExportXLSX(t *testing.T) {
	recs := []minutes.DocumentRecord{
		sampleRecord("2023/stv-01.pdf", "14.03.2023"),
		sampleRecord("2023/stv-02.pdf", "2.5.2023"),
	}

	data, err := ExportXLSX(recs)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSessions, SheetAttendance, SheetAgenda}, f.GetSheetList())

	sessions, err := f.GetRows(SheetSessions)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "ID", sessions[0][0])
	assert.Equal(t, "stv-01", sessions[1][0])
	assert.Equal(t, "2023-03-14T00:00:00Z", sessions[1][1])
	assert.Equal(t, "14.03.2023", sessions[1][2])

	attendance, err := f.GetRows(SheetAttendance)
	require.NoError(t, err)
	assert.Len(t, attendance, 1+2*3)
	assert.Equal(t, []string{"stv-01", "2023-03-14T00:00:00Z", "STV Weber", "Von der Fraktion CDU:", "entschuldigt"}, attendance[3])

	agenda, err := f.GetRows(SheetAgenda)
	require.NoError(t, err)
	require.Len(t, agenda, 1+2*2)
	assert.Equal(t, "1", agenda[1][2])
	assert.Equal(t, "", agenda[1][4])
	assert.Equal(t, "Vorlage: STV/2023/01", agenda[2][4])
	assert.Equal(t, "Einstimmig beschlossen.", agenda[2][5])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "äb…", truncate("äbcd", 3))
}
