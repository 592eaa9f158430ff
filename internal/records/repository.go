package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
)

// ErrNotFound is returned when no record is stored for a document
var ErrNotFound = errors.New("record not found")

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		total INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS documents (
		document_path TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		run_id TEXT,
		document_type TEXT,
		session_type TEXT,
		date TEXT,
		date_raw TEXT,
		duration TEXT,
		location TEXT,
		total_present INTEGER NOT NULL,
		total_excused INTEGER NOT NULL,
		total_participants INTEGER NOT NULL,
		attendance_error TEXT,
		agenda_status TEXT NOT NULL,
		analysis_method TEXT NOT NULL,
		total_pages INTEGER NOT NULL,
		extraction_timestamp TEXT NOT NULL,
		record_json TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_date ON documents(date);

	CREATE TABLE IF NOT EXISTS attendance (
		document_path TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		function TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (document_path, position),
		FOREIGN KEY (document_path) REFERENCES documents(document_path) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_name ON attendance(name);

	CREATE TABLE IF NOT EXISTS agenda_items (
		document_path TEXT NOT NULL,
		number TEXT NOT NULL,
		heading TEXT NOT NULL,
		reference_tag TEXT,
		vote_outcome TEXT,
		body TEXT NOT NULL,
		PRIMARY KEY (document_path, number),
		FOREIGN KEY (document_path) REFERENCES documents(document_path) ON DELETE CASCADE
	);
`

// Run describes one batch run
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// PersonStats counts how often a person attended or was excused
type PersonStats struct {
	Name     string `json:"name"`
	Present  int    `json:"present"`
	Excused  int    `json:"excused"`
	Sessions int    `json:"sessions"`
}

// Repository persists parsed records in SQLite
type Repository struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps in-memory databases shared and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the database
func (r *Repository) Close() error {
	return r.db.Close()
}

// StartRun records the start of a batch run
func (r *Repository) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a batch run
func (r *Repository) FinishRun(ctx context.Context, run Run) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ? WHERE run_id = ?`,
		run.FinishedAt.UTC().Format(time.RFC3339Nano), run.Total, run.Succeeded, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: unknown run", run.ID)
	}
	return nil
}

// GetRun loads a batch run
func (r *Repository) GetRun(ctx context.Context, runID string) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, total, succeeded, failed FROM runs WHERE run_id = ?`, runID).
		Scan(&run.ID, &started, &finished, &run.Total, &run.Succeeded, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	return run, nil
}

// SaveRecord inserts or replaces the record of one document. runID may be
// empty for records parsed outside a batch run.
func (r *Repository) SaveRecord(ctx context.Context, runID string, rec minutes.DocumentRecord) error {
	if rec.DocumentPath == "" {
		return errors.New("save record: document path is empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"attendance", "agenda_items", "documents"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE document_path = ?`, rec.DocumentPath); err != nil {
			return fmt.Errorf("replace record: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (
			document_path, id, run_id, document_type, session_type, date, date_raw,
			duration, location, total_present, total_excused, total_participants,
			attendance_error, agenda_status, analysis_method, total_pages,
			extraction_timestamp, record_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DocumentPath, rec.ID, nullString(runID), nullable(rec.DocumentType), nullable(rec.SessionType),
		nullable(rec.Date), nullable(rec.DateRaw), nullable(rec.Duration), nullable(rec.Location),
		rec.TotalPresent, rec.TotalExcused, rec.TotalParticipants,
		nullable(rec.AttendanceError), string(rec.AgendaStatus), rec.AnalysisMethod, rec.TotalPages,
		rec.ExtractionTimestamp, string(data))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	attendees := append(append([]minutes.AttendanceEntry{}, rec.AttendancePresent...), rec.AttendanceExcused...)
	for i, a := range attendees {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attendance (document_path, position, name, function, status) VALUES (?, ?, ?, ?, ?)`,
			rec.DocumentPath, i, a.Name, a.Role, string(a.Status)); err != nil {
			return fmt.Errorf("insert attendance: %w", err)
		}
	}

	for _, it := range rec.AgendaItems {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO agenda_items (document_path, number, heading, reference_tag, vote_outcome, body)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.DocumentPath, it.Number, it.Heading, nullable(it.ReferenceTag), nullable(it.VoteOutcome), it.Body); err != nil {
			return fmt.Errorf("insert agenda item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// GetRecord loads the record stored for a document path
func (r *Repository) GetRecord(ctx context.Context, documentPath string) (minutes.DocumentRecord, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT record_json FROM documents WHERE document_path = ?`, documentPath).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return minutes.DocumentRecord{}, fmt.Errorf("%s: %w", documentPath, ErrNotFound)
	}
	if err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("get record: %w", err)
	}
	return decodeRecord(data)
}

// ListRecords returns all stored records ordered by session date
func (r *Repository) ListRecords(ctx context.Context) ([]minutes.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_json FROM documents ORDER BY date IS NULL, date, document_path`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	recs := []minutes.DocumentRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// AttendanceStats aggregates attendance per person over all stored sessions
func (r *Repository) AttendanceStats(ctx context.Context) ([]PersonStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name,
		       SUM(CASE WHEN status = 'present' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'excused' THEN 1 ELSE 0 END),
		       COUNT(DISTINCT document_path)
		FROM attendance
		GROUP BY name
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}
	defer rows.Close()

	stats := []PersonStats{}
	for rows.Next() {
		var s PersonStats
		if err := rows.Scan(&s.Name, &s.Present, &s.Excused, &s.Sessions); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func decodeRecord(data string) (minutes.DocumentRecord, error) {
	var rec minutes.DocumentRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
