package pdf

// FileInfo represents a minutes PDF found in a directory
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	Processed    bool   `json:"processed"`
	HasSidecar   bool   `json:"has_ocr_sidecar"`
}

// Request Types

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFSearchDirectoryRequest represents a request to search for PDF files in a directory
type PDFSearchDirectoryRequest struct {
	Directory   string `json:"directory"`
	Query       string `json:"query"`
	PendingOnly bool   `json:"pending_only"`
}

// Response Types

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid       bool   `json:"valid"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
	Version     string `json:"version,omitempty"`
	Encrypted   bool   `json:"encrypted,omitempty"`
	HasText     bool   `json:"has_text_layer"`
	Recommended string `json:"recommended_recognizer,omitempty"`
	Message     string `json:"message,omitempty"`
}

// PDFSearchDirectoryResult represents the result of a PDF search operation
type PDFSearchDirectoryResult struct {
	Files        []FileInfo `json:"files"`
	TotalCount   int        `json:"total_count"`
	PendingCount int        `json:"pending_count"`
	Directory    string     `json:"directory"`
	SearchQuery  string     `json:"search_query,omitempty"`
}

// ToolInfo describes one MCP tool for server info responses
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult represents server information and the current work queue
type ServerInfoResult struct {
	ServerName       string     `json:"server_name"`
	Version          string     `json:"version"`
	DefaultDirectory string     `json:"default_directory"`
	OutputDirectory  string     `json:"output_directory"`
	MaxFileSize      int64      `json:"max_file_size"`
	Recognizer       string     `json:"recognizer"`
	AvailableTools   []ToolInfo `json:"available_tools"`
	PendingFiles     []FileInfo `json:"pending_files"`
	PendingCount     int        `json:"pending_count"`
	UsageGuidance    string     `json:"usage_guidance,omitempty"`
}
