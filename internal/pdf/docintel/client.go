// Package docintel recognizes scanned minutes with the hosted Document
// Intelligence prebuilt-layout model. Requests run through an azcore
// pipeline, which supplies the key header, retries and operation polling.
package docintel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
)

const (
	// APIVersion is the REST API version the client speaks
	APIVersion = "2024-11-30"
	modelID    = "prebuilt-layout"

	moduleName    = "mcp-minutes-reader/docintel"
	moduleVersion = "v0.1.0"

	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
	keyHeader           = "Ocp-Apim-Subscription-Key"
	operationLocation   = "Operation-Location"
)

// Config configures a Client
type Config struct {
	Endpoint     string
	Key          string
	Timeout      time.Duration // whole analysis, submit to result
	PollInterval time.Duration
	// Retry tunes the pipeline retry policy; the zero value keeps the SDK
	// defaults of three retries on 408, 429 and 5xx answers.
	Retry      policy.RetryOptions
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements pdf.Recognizer against the hosted layout model
type Client struct {
	endpoint     string
	timeout      time.Duration
	pollInterval time.Duration
	pl           runtime.Pipeline
	logger       *slog.Logger
}

// New creates a client. Endpoint and key are required.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("document intelligence endpoint is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("document intelligence key is required")
	}

	c := &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	options := &policy.ClientOptions{Retry: cfg.Retry}
	if cfg.HTTPClient != nil {
		options.Transport = cfg.HTTPClient
	}
	keyPolicy := runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(cfg.Key), keyHeader, nil)
	c.pl = runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{keyPolicy},
	}, options)
	return c, nil
}

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

// Recognize implements pdf.Recognizer
func (c *Client) Recognize(ctx context.Context, doc []byte) (*pdf.Recognition, error) {
	start := time.Now()
	result, err := c.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}

	rec, err := result.Recognition()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("layout analysis finished",
		"pages", rec.Pages, "lines", len(rec.Lines), "elapsed_ms", time.Since(start).Milliseconds())
	return rec, nil
}

// Analyze submits the document to the layout model and waits for the result.
// Service errors surface as *azcore.ResponseError.
func (c *Client) Analyze(ctx context.Context, doc []byte) (*AnalyzeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	poller, err := c.beginAnalyze(ctx, doc)
	if err != nil {
		return nil, err
	}

	op, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.pollInterval})
	if err != nil {
		return nil, fmt.Errorf("waiting for layout analysis: %w", err)
	}
	if op.AnalyzeResult == nil {
		return nil, errors.New("document intelligence: succeeded without analyzeResult")
	}
	return op.AnalyzeResult, nil
}

func (c *Client) beginAnalyze(ctx context.Context, doc []byte) (*runtime.Poller[Operation], error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.endpoint, modelID, APIVersion)
	req, err := runtime.NewRequest(ctx, http.MethodPost, url)
	if err != nil {
		return nil, err
	}
	body := analyzeRequest{Base64Source: base64.StdEncoding.EncodeToString(doc)}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, err
	}

	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusAccepted) {
		return nil, runtime.NewResponseError(resp)
	}
	if resp.Header.Get(operationLocation) == "" {
		resp.Body.Close()
		return nil, errors.New("document intelligence: response has no Operation-Location")
	}

	c.logger.Debug("layout analysis submitted", "operation", resp.Header.Get(operationLocation))
	return runtime.NewPoller[Operation](resp, c.pl, nil)
}
