package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-minutes-reader/internal/config"
	"github.com/a3tai/mcp-minutes-reader/internal/descriptions"
	"github.com/a3tai/mcp-minutes-reader/internal/minutes"
	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
	"github.com/a3tai/mcp-minutes-reader/internal/pipeline"
	"github.com/a3tai/mcp-minutes-reader/internal/records"
)

const shutdownTimeout = 10 * time.Second

// Options carries the collaborators of the server. PDFService and Processor
// are required; the processor must read from the PDF service's directory.
type Options struct {
	PDFService *pdf.Service
	Processor  *pipeline.Processor
	// Local and Layout are compared by minutes_compare_extraction; Layout
	// is nil when the hosted service is not configured.
	Local      pdf.Recognizer
	Layout     pdf.Recognizer
	Repository *records.Repository
	Logger     *slog.Logger
}

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	processor  *pipeline.Processor
	local      pdf.Recognizer
	layout     pdf.Recognizer
	repo       *records.Repository
	logger     *slog.Logger
	mcpServer  *server.MCPServer
	tools      []pdf.ToolInfo

	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if opts.PDFService == nil {
		return nil, errors.New("pdfService cannot be nil")
	}
	if opts.Processor == nil {
		return nil, errors.New("processor cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: opts.PDFService,
		processor:  opts.Processor,
		local:      opts.Local,
		layout:     opts.Layout,
		repo:       opts.Repository,
		logger:     logger,
		mcpServer:  mcpServer,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
	}
	if s.local == nil {
		s.local = pdf.NewTextLayer()
	}

	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, usage, parameters string, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, s.logged(tool.Name, handler))
	s.tools = append(s.tools, pdf.ToolInfo{
		Name:        tool.Name,
		Description: firstLine(descriptions.GetToolDescription(tool.Name)),
		Usage:       usage,
		Parameters:  parameters,
	})
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(descriptions.ToolParseFile,
		mcp.WithDescription(descriptions.ParseFileDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("PDF path, relative to the configured directory or absolute inside it")),
		mcp.WithBoolean("store", mcp.Description("Write <name>.json to the output directory and save the record in the database")),
	), "Parse one minutes PDF", "path (required), store (optional)", s.handleParseFile)

	s.addTool(mcp.NewTool(descriptions.ToolParseText,
		mcp.WithDescription(descriptions.ParseTextDescription),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full text of the minutes document")),
		mcp.WithString("document_path", mcp.Description("Name recorded as document_path and used for the id")),
	), "Parse extracted minutes text", "text (required), document_path (optional)", s.handleParseText)

	s.addTool(mcp.NewTool(descriptions.ToolExtractAttendance,
		mcp.WithDescription(descriptions.ExtractAttendanceDescription),
		mcp.WithString("text", mcp.Description("Minutes text")),
		mcp.WithString("path", mcp.Description("PDF path, used when text is empty")),
	), "Present and excused persons", "text or path", s.handleExtractAttendance)

	s.addTool(mcp.NewTool(descriptions.ToolExtractAgenda,
		mcp.WithDescription(descriptions.ExtractAgendaDescription),
		mcp.WithString("text", mcp.Description("Minutes text")),
		mcp.WithString("path", mcp.Description("PDF path, used when text is empty")),
	), "Agenda listing and TOP items", "text or path", s.handleExtractAgenda)

	s.addTool(mcp.NewTool(descriptions.ToolSearchDirectory,
		mcp.WithDescription(descriptions.SearchDirectoryDescription),
		mcp.WithString("directory", mcp.Description("Directory path to search (uses default if empty)")),
		mcp.WithString("query", mcp.Description("Optional search query for fuzzy matching")),
		mcp.WithBoolean("pending_only", mcp.Description("Only list documents without a result JSON")),
	), "Find minutes PDFs", "directory, query, pending_only (all optional)", s.handleSearchDirectory)

	s.addTool(mcp.NewTool(descriptions.ToolValidateFile,
		mcp.WithDescription(descriptions.ValidateFileDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("PDF path")),
	), "Check a PDF and its text layer", "path (required)", s.handleValidateFile)

	s.addTool(mcp.NewTool(descriptions.ToolCompareExtraction,
		mcp.WithDescription(descriptions.CompareExtractionDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("PDF path")),
	), "Local text layer vs. layout analysis", "path (required)", s.handleCompareExtraction)

	s.addTool(mcp.NewTool(descriptions.ToolAttendanceOverview,
		mcp.WithDescription(descriptions.AttendanceStatsDescription),
	), "Attendance per person over stored sessions", "none", s.handleAttendanceStats)

	s.addTool(mcp.NewTool(descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), "Server configuration and pending documents", "none", s.handleServerInfo)
}

// logged wraps a handler with timing and error logging
func (s *Server) logged(name string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := next(ctx, request)
		attrs := []any{"tool", name, "elapsed_ms", time.Since(start).Milliseconds()}
		if result != nil && result.IsError {
			s.logger.Warn("tool call failed", attrs...)
		} else {
			s.logger.Debug("tool call", attrs...)
		}
		return result, err
	}
}

// Handler functions
func (s *Server) handleParseFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := s.documentName(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var rec minutes.DocumentRecord
	if request.GetBool("store", false) {
		rec, err = s.processor.ProcessDocument(ctx, "", name)
	} else {
		rec, err = s.processor.ParseDocument(ctx, name)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleParseText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec := minutes.Parse(text, minutes.Passthrough{
		DocumentPath:   request.GetString("document_path", ""),
		AnalysisMethod: "Text",
	})
	return jsonResult(rec)
}

// attendanceResult is the response of minutes_extract_attendance
type attendanceResult struct {
	Present      []minutes.AttendanceGroup `json:"present"`
	Excused      []minutes.AttendanceGroup `json:"excused"`
	TotalPresent int                       `json:"total_present"`
	TotalExcused int                       `json:"total_excused"`
	Error        string                    `json:"error,omitempty"`
}

func (s *Server) handleExtractAttendance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.documentText(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	attendance, err := minutes.ExtractAttendance(minutes.NormalizeText(text))
	result := attendanceResult{
		Present:      nonNilGroups(attendance.Present),
		Excused:      nonNilGroups(attendance.Excused),
		TotalPresent: attendance.TotalPresent(),
		TotalExcused: attendance.TotalExcused(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return jsonResult(result)
}

// agendaResult is the response of minutes_extract_agenda
type agendaResult struct {
	Status    minutes.AgendaStatus  `json:"agenda_status"`
	Text      string                `json:"agenda_text,omitempty"`
	Listing   []minutes.AgendaEntry `json:"agenda_listing"`
	Items     []minutes.AgendaItem  `json:"agenda_items"`
	Anomalies []string              `json:"agenda_anomalies"`
	Mentions  []string              `json:"top_mentions"`
}

func (s *Server) handleExtractAgenda(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.documentText(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text = minutes.NormalizeText(text)

	agenda := minutes.ExtractAgendaResult(text)
	return jsonResult(agendaResult{
		Status:    agenda.Status,
		Text:      agenda.Text,
		Listing:   agenda.Listing,
		Items:     agenda.Items,
		Anomalies: minutes.ReconcileAgenda(agenda.Listing, agenda.Items),
		Mentions:  minutes.FindAllTOPs(minutes.StripPageMarkers(text)),
	})
}

func (s *Server) handleSearchDirectory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.PDFSearchDirectoryRequest{
		Directory:   request.GetString("directory", ""),
		Query:       request.GetString("query", ""),
		PendingOnly: request.GetBool("pending_only", false),
	}

	result, err := s.pdfService.SearchDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No minutes PDFs found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = s.formatSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ValidateFile(ctx, pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatValidateFileResult(result)), nil
}

func (s *Server) handleCompareExtraction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.layout == nil {
		return mcp.NewToolResultError("layout recognizer not configured: set docintel-endpoint and docintel-key"), nil
	}

	doc, err := s.pdfService.ReadDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	comparison, err := pipeline.Compare(ctx, doc, s.local, s.layout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(comparison)
}

func (s *Server) handleAttendanceStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.repo == nil {
		return mcp.NewToolResultError("no database configured: start with --db"), nil
	}

	stats, err := s.repo.AttendanceStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(stats) == 0 {
		return mcp.NewToolResultText("No attendance stored yet"), nil
	}
	return mcp.NewToolResultText(formatAttendanceStats(stats)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version, s.config.Recognizer, s.tools)
	result.UsageGuidance = s.usageGuidance()
	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// documentName maps a tool path argument to the name used by the stores
func (s *Server) documentName(path string) (string, error) {
	return s.pdfService.RelativeName(path)
}

// documentText returns the "text" argument, or recognizes the PDF named by
// "path" when no text is given.
func (s *Server) documentText(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	if text := request.GetString("text", ""); strings.TrimSpace(text) != "" {
		return text, nil
	}
	path := request.GetString("path", "")
	if path == "" {
		return "", errors.New("either text or path is required")
	}

	name, err := s.documentName(path)
	if err != nil {
		return "", err
	}
	doc, err := s.pdfService.ReadDocument(path)
	if err != nil {
		return "", err
	}
	recognition, err := s.processor.Recognize(ctx, name, doc)
	if err != nil {
		return "", err
	}
	return recognition.Text(), nil
}

func (s *Server) usageGuidance() string {
	text := "Start with minutes_search_directory (pending_only=true) to see unprocessed documents, " +
		"then minutes_parse_file for each of them."
	if s.layout == nil {
		text += " Only the local text layer is available; scans without text need the layout recognizer."
	}
	if s.repo == nil {
		text += " No database is configured, so minutes_attendance_stats is unavailable."
	}
	return text
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func nonNilGroups(groups []minutes.AttendanceGroup) []minutes.AttendanceGroup {
	if groups == nil {
		return []minutes.AttendanceGroup{}
	}
	return groups
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Formatting methods
func (s *Server) formatSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d minutes PDF(s) in directory: %s (%d pending)\n",
		result.TotalCount, result.Directory, result.PendingCount)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		status := "pending"
		if file.Processed {
			status = "processed"
		}
		text += fmt.Sprintf("%d. %s [%s]\n", i+1, file.Name, status)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if file.HasSidecar {
			text += "   OCR sidecar: yes\n"
		}
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatValidateFileResult(result *pdf.PDFValidateFileResult) string {
	if !result.Valid {
		return fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	text := fmt.Sprintf("PDF file %s is valid and readable\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	if result.Version != "" {
		text += fmt.Sprintf("Version: %s\n", result.Version)
	}
	text += fmt.Sprintf("Encrypted: %t\n", result.Encrypted)
	text += fmt.Sprintf("Text layer: %t\n", result.HasText)
	text += fmt.Sprintf("Recommended recognizer: %s\n", result.Recommended)
	if result.Message != "" {
		text += fmt.Sprintf("Note: %s\n", result.Message)
	}
	return text
}

func formatAttendanceStats(stats []records.PersonStats) string {
	text := fmt.Sprintf("Attendance over stored sessions (%d persons)\n\n", len(stats))
	for _, st := range stats {
		text += fmt.Sprintf("%s: present %d, excused %d, sessions %d\n", st.Name, st.Present, st.Excused, st.Sessions)
	}
	return text
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("%s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("Default Directory: %s\n", result.DefaultDirectory)
	if result.OutputDirectory != "" && result.OutputDirectory != result.DefaultDirectory {
		text += fmt.Sprintf("Output Directory: %s\n", result.OutputDirectory)
	}
	text += fmt.Sprintf("Recognizer: %s\n", result.Recognizer)
	text += fmt.Sprintf("Max File Size: %d MB\n\n", result.MaxFileSize/(1024*1024))

	if len(result.PendingFiles) > 0 {
		text += fmt.Sprintf("Pending documents (%d):\n", result.PendingCount)
		for i, file := range result.PendingFiles {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.PendingFiles)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "Pending documents: none\n\n"
	}

	text += "Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves MCP over stdin and stdout until stdin closes or ctx
// is cancelled
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug("starting minutes MCP server in stdio mode", "dir", s.config.PDFDirectory)

	if err := ctx.Err(); err != nil {
		return err
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	sse := s.SSEServer()
	addr := s.config.Address()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting minutes MCP server in SSE mode", "addr", addr, "dir", s.config.PDFDirectory)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown sse server: %w", err)
		}
		return nil
	}
}

// SSEServer returns an SSE transport for the server, usable as an
// http.Handler
func (s *Server) SSEServer() *server.SSEServer {
	return server.NewSSEServer(s.mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s", s.config.Address())),
		server.WithKeepAlive(true),
	)
}
