// Package pipeline runs minutes documents from a source store through
// recognition, parsing and validation into the result sinks.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-minutes-reader/internal/blob"
	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf/docintel"
	"github.com/a3tai/mcp-minutes-reader/internal/records"
)

// DefaultWorkers is used when Options.Workers is not positive
const DefaultWorkers = 2

// Options configures a Processor. Source, Results, Recognizer and Validator
// are required.
type Options struct {
	Source     blob.Store
	Results    blob.Store
	Recognizer pdf.Recognizer
	Validator  *pdf.Validator

	// Repository receives every record when set
	Repository *records.Repository
	// XLSXName is the name of the workbook written to Results after a run
	XLSXName string

	Workers int
	Logger  *slog.Logger
	Now     func() time.Time
}

// Processor turns pending PDFs into validated DocumentRecords
type Processor struct {
	source     blob.Store
	results    blob.Store
	recognizer pdf.Recognizer
	validator  *pdf.Validator
	repo       *records.Repository
	xlsxName   string
	workers    int
	logger     *slog.Logger
	now        func() time.Time
}

// DocumentResult is the outcome for one document of a run
type DocumentResult struct {
	Name   string                  `json:"name"`
	Record *minutes.DocumentRecord `json:"-"`
	Error  string                  `json:"error,omitempty"`
}

// Summary reports a batch run
type Summary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Documents  []DocumentResult `json:"documents"`
	Workbook   string           `json:"workbook,omitempty"`
}

// New creates a Processor
func New(opts Options) (*Processor, error) {
	switch {
	case opts.Source == nil:
		return nil, errors.New("pipeline: source store is required")
	case opts.Results == nil:
		return nil, errors.New("pipeline: results store is required")
	case opts.Recognizer == nil:
		return nil, errors.New("pipeline: recognizer is required")
	case opts.Validator == nil:
		return nil, errors.New("pipeline: validator is required")
	}

	p := &Processor{
		source:     opts.Source,
		results:    opts.Results,
		recognizer: opts.Recognizer,
		validator:  opts.Validator,
		repo:       opts.Repository,
		xlsxName:   opts.XLSXName,
		workers:    opts.Workers,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if p.workers < 1 {
		p.workers = DefaultWorkers
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// ProcessAll processes every PDF of the source store that has no result yet.
// Failures of single documents are reported in the summary; the returned
// error covers listing, persistence and cancellation only.
func (p *Processor) ProcessAll(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
		Documents: []DocumentResult{},
	}
	logger := p.logger.With("run_id", summary.RunID)

	pending, err := blob.Pending(ctx, p.source, p.results)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}
	summary.Total = len(pending)
	logger.Info("batch run started", "pending", len(pending), "workers", p.workers)

	if p.repo != nil {
		if err := p.repo.StartRun(ctx, summary.RunID, summary.StartedAt); err != nil {
			return nil, err
		}
	}

	results := make([]DocumentResult, len(pending))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, name := range pending {
		g.Go(func() error {
			results[i] = DocumentResult{Name: name}
			if ctx.Err() != nil {
				results[i].Error = ctx.Err().Error()
				return nil
			}
			rec, err := p.ProcessDocument(ctx, summary.RunID, name)
			if err != nil {
				logger.Error("document failed", "doc", name, "err", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Record = &rec
			return nil
		})
	}
	_ = g.Wait()

	summary.Documents = results
	for _, r := range results {
		if r.Error == "" {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	if p.xlsxName != "" && summary.Succeeded > 0 {
		if err := p.exportWorkbook(ctx, results); err != nil {
			return summary, err
		}
		summary.Workbook = p.xlsxName
	}

	summary.FinishedAt = p.now()
	if p.repo != nil {
		run := records.Run{
			ID:         summary.RunID,
			FinishedAt: summary.FinishedAt,
			Total:      summary.Total,
			Succeeded:  summary.Succeeded,
			Failed:     summary.Failed,
		}
		if err := p.repo.FinishRun(ctx, run); err != nil {
			return summary, err
		}
	}

	logger.Info("batch run finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"elapsed_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds())
	return summary, nil
}

// exportWorkbook writes the spreadsheet. With a repository every stored
// record is exported, otherwise only the records of this run.
func (p *Processor) exportWorkbook(ctx context.Context, results []DocumentResult) error {
	var recs []minutes.DocumentRecord
	if p.repo != nil {
		stored, err := p.repo.ListRecords(ctx)
		if err != nil {
			return err
		}
		recs = stored
	} else {
		for _, r := range results {
			if r.Record != nil {
				recs = append(recs, *r.Record)
			}
		}
	}

	data, err := records.ExportXLSX(recs)
	if err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}
	if err := p.results.Put(ctx, p.xlsxName, data); err != nil {
		return fmt.Errorf("store workbook: %w", err)
	}
	return nil
}

// ProcessDocument runs one PDF through the whole pipeline and stores its
// result as <stem>.json in the results store.
func (p *Processor) ProcessDocument(ctx context.Context, runID, name string) (minutes.DocumentRecord, error) {
	start := time.Now()

	rec, err := p.ParseDocument(ctx, name)
	if err != nil {
		return minutes.DocumentRecord{}, err
	}

	if err := records.Validate(rec); err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("%s: %w", name, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("encode %s: %w", name, err)
	}
	if err := p.results.Put(ctx, pdf.ResultName(name), data); err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("store result of %s: %w", name, err)
	}

	if p.repo != nil {
		if err := p.repo.SaveRecord(ctx, runID, rec); err != nil {
			return minutes.DocumentRecord{}, fmt.Errorf("persist %s: %w", name, err)
		}
	}

	p.logger.Info("document processed",
		"doc", name,
		"method", rec.AnalysisMethod,
		"pages", rec.TotalPages,
		"present", rec.TotalPresent,
		"excused", rec.TotalExcused,
		"agenda_status", rec.AgendaStatus,
		"agenda_items", len(rec.AgendaItems),
		"elapsed_ms", time.Since(start).Milliseconds())
	return rec, nil
}

// ParseDocument validates and recognizes one PDF of the source store and
// parses it. Nothing is written except a new recognition sidecar.
func (p *Processor) ParseDocument(ctx context.Context, name string) (minutes.DocumentRecord, error) {
	doc, err := p.source.Get(ctx, name)
	if err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("read %s: %w", name, err)
	}

	info, err := p.validator.Inspect(doc)
	if err != nil {
		return minutes.DocumentRecord{}, fmt.Errorf("%s: %w", name, err)
	}

	recognition, err := p.Recognize(ctx, name, doc)
	if err != nil {
		return minutes.DocumentRecord{}, err
	}

	pages := info.Pages
	if pages == 0 {
		pages = recognition.Pages
	}
	return minutes.ParseLines(recognition.Lines, minutes.Passthrough{
		DocumentPath:        name,
		AnalysisMethod:      recognition.Method,
		TotalPages:          pages,
		ExtractionTimestamp: p.now(),
	}), nil
}

// Recognize returns the recognition of a PDF. A stored <pdf>.ocr.json
// sidecar in the results or the source store is reused; otherwise the
// recognizer runs and its output is written to the results store.
func (p *Processor) Recognize(ctx context.Context, name string, doc []byte) (*pdf.Recognition, error) {
	sidecar := pdf.SidecarName(name)
	for _, store := range []blob.Store{p.results, p.source} {
		data, err := store.Get(ctx, sidecar)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read sidecar of %s: %w", name, err)
		}
		rec, err := docintel.DecodeSidecar(data)
		if err != nil {
			p.logger.Warn("ignoring unreadable sidecar", "doc", name, "err", err)
			continue
		}
		p.logger.Debug("reusing sidecar", "doc", name, "method", rec.Method)
		return rec, nil
	}

	start := time.Now()
	rec, err := p.recognizer.Recognize(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", name, err)
	}
	p.logger.Debug("document recognized",
		"doc", name,
		"method", rec.Method,
		"lines", len(rec.Lines),
		"elapsed_ms", time.Since(start).Milliseconds())

	data, err := pdf.EncodeSidecar(rec)
	if err != nil {
		return nil, err
	}
	if err := p.results.Put(ctx, sidecar, data); err != nil {
		return nil, fmt.Errorf("store sidecar of %s: %w", name, err)
	}
	return rec, nil
}
