package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Recognizer constants
	RecognizerLocal  = "local"
	RecognizerLayout = "layout"
	RecognizerAuto   = "auto"

	// Default values
	DefaultPort            = 8080
	DefaultHost            = "127.0.0.1"
	DefaultLogLevel        = "info"
	DefaultMaxFileSize     = 100 * 1024 * 1024 // 100MB
	DefaultRecognizer      = RecognizerAuto
	DefaultDocIntelTimeout = 5 * time.Minute
	DefaultWorkers         = 2

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "MINUTES"
)

// Config holds all configuration for the minutes reader binaries
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document locations
	PDFDirectory    string
	OutputDirectory string
	BlobSASURL      string // container SAS URL; replaces the local directories when set

	// Recognition
	Recognizer       string
	DocIntelEndpoint string
	DocIntelKey      string
	DocIntelTimeout  time.Duration

	// Result sinks
	DatabasePath string
	XLSXPath     string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
	Workers     int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		PDFDirectory:    currentDir,
		Recognizer:      DefaultRecognizer,
		DocIntelTimeout: DefaultDocIntelTimeout,
		Version:         "1.0.0",
		ServerName:      "mcp-minutes-reader",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
		Workers:         DefaultWorkers,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	cfg.PDFDirectory = absPath(cfg.PDFDirectory)
	cfg.OutputDirectory = absPath(cfg.OutputDirectory)
	if cfg.OutputDirectory == "" {
		cfg.OutputDirectory = cfg.PDFDirectory
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if expanded, err := filepath.Abs(path); err == nil {
		return expanded
	}
	return path
}

// flagSpecs lists every key once; flags, viper bindings and env names derive from it.
var flagSpecs = []struct {
	name  string
	usage string
}{
	{"mode", "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE server"},
	{"host", "Server host address (server mode only)"},
	{"port", "Server port (server mode only)"},
	{"dir", "Directory containing minutes PDF files"},
	{"output", "Directory for JSON results and OCR sidecars (defaults to --dir)"},
	{"blob-sas-url", "Blob container SAS URL; documents and results are read from and written to the container"},
	{"recognizer", "Text recognizer: local, layout or auto"},
	{"docintel-endpoint", "Document Intelligence endpoint URL"},
	{"docintel-key", "Document Intelligence API key"},
	{"docintel-timeout", "Maximum time to wait for one layout analysis"},
	{"db", "SQLite database path for extracted records (optional)"},
	{"xlsx", "Workbook name written next to the JSON results (optional)"},
	{"workers", "Number of documents processed concurrently in batch runs"},
	{"log-level", "Log level (debug, info, warn, error)"},
	{"max-file-size", "Maximum PDF file size in bytes"},
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("output", cfg.OutputDirectory)
	viper.SetDefault("blob-sas-url", cfg.BlobSASURL)
	viper.SetDefault("recognizer", cfg.Recognizer)
	viper.SetDefault("docintel-endpoint", cfg.DocIntelEndpoint)
	viper.SetDefault("docintel-key", cfg.DocIntelKey)
	viper.SetDefault("docintel-timeout", cfg.DocIntelTimeout)
	viper.SetDefault("db", cfg.DatabasePath)
	viper.SetDefault("xlsx", cfg.XLSXPath)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	usage := make(map[string]string, len(flagSpecs))
	for _, spec := range flagSpecs {
		usage[spec.name] = spec.usage
	}

	pflag.String("mode", cfg.Mode, usage["mode"])
	pflag.String("host", cfg.Host, usage["host"])
	pflag.Int("port", cfg.Port, usage["port"])
	pflag.String("dir", cfg.PDFDirectory, usage["dir"])
	pflag.String("output", cfg.OutputDirectory, usage["output"])
	pflag.String("blob-sas-url", cfg.BlobSASURL, usage["blob-sas-url"])
	pflag.String("recognizer", cfg.Recognizer, usage["recognizer"])
	pflag.String("docintel-endpoint", cfg.DocIntelEndpoint, usage["docintel-endpoint"])
	pflag.String("docintel-key", cfg.DocIntelKey, usage["docintel-key"])
	pflag.Duration("docintel-timeout", cfg.DocIntelTimeout, usage["docintel-timeout"])
	pflag.String("db", cfg.DatabasePath, usage["db"])
	pflag.String("xlsx", cfg.XLSXPath, usage["xlsx"])
	pflag.Int("workers", cfg.Workers, usage["workers"])
	pflag.String("log-level", cfg.LogLevel, usage["log-level"])
	pflag.Int64("max-file-size", cfg.MaxFileSize, usage["max-file-size"])
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, spec := range flagSpecs {
		_ = viper.BindPFlag(spec.name, pflag.Lookup(spec.name))
	}
}

// envName returns the environment variable read for a flag
func envName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMinutes Reader - structured extraction from council minutes (Niederschriften)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/minutes                       "+
			"# local text layer only\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --recognizer=layout --docintel-endpoint=URL  "+
			"# hosted layout analysis\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081     # SSE server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, spec := range flagSpecs {
			fmt.Fprintf(os.Stderr, "  %-28s %s\n", envName(spec.name), spec.name)
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.BlobSASURL = viper.GetString("blob-sas-url")
	cfg.Recognizer = strings.ToLower(viper.GetString("recognizer"))
	cfg.DocIntelEndpoint = viper.GetString("docintel-endpoint")
	cfg.DocIntelKey = viper.GetString("docintel-key")
	cfg.DocIntelTimeout = viper.GetDuration("docintel-timeout")
	cfg.DatabasePath = viper.GetString("db")
	cfg.XLSXPath = viper.GetString("xlsx")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when serving over HTTP
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" && c.BlobSASURL == "" {
		return errors.New("PDF directory cannot be empty")
	}

	if c.BlobSASURL == "" {
		for _, dir := range []string{c.PDFDirectory, c.OutputDirectory} {
			if err := ensureDir(dir); err != nil {
				return err
			}
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	switch c.Recognizer {
	case RecognizerLocal, RecognizerAuto:
	case RecognizerLayout:
		if c.DocIntelEndpoint == "" || c.DocIntelKey == "" {
			return errors.New("recognizer 'layout' requires docintel-endpoint and docintel-key")
		}
	default:
		return fmt.Errorf("invalid recognizer: %s (must be one of: local, layout, auto)", c.Recognizer)
	}

	if c.DocIntelTimeout <= 0 {
		return errors.New("docintel timeout must be positive")
	}

	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	if lvl, ok := logLevels[c.LogLevel]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// UsesLayoutService reports whether the hosted layout service is configured
func (c *Config) UsesLayoutService() bool {
	return c.Recognizer != RecognizerLocal && c.DocIntelEndpoint != "" && c.DocIntelKey != ""
}

// UsesBlobStorage reports whether documents live in a blob container
func (c *Config) UsesBlobStorage() bool {
	return c.BlobSASURL != ""
}

// String returns a string representation of the configuration. Secrets are masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"Recognizer: %s, DocIntelEndpoint: %s, DocIntelKey: %s, Blob: %t, DB: %s, XLSX: %s, "+
		"Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.Recognizer, c.DocIntelEndpoint, mask(c.DocIntelKey), c.UsesBlobStorage(), c.DatabasePath, c.XLSXPath,
		c.Workers, c.LogLevel, c.MaxFileSize)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
