package docintel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf"
)

const layoutResult = `{
  "status": "succeeded",
  "analyzeResult": {
    "apiVersion": "2024-11-30",
    "modelId": "prebuilt-layout",
    "content": "Niederschrift\nTOP 1: Haushalt",
    "pages": [
      {
        "pageNumber": 1,
        "width": 8.5,
        "height": 11,
        "unit": "inch",
        "words": [
          {"content": "Niederschrift", "span": {"offset": 0, "length": 13}, "confidence": 0.9},
          {"content": "TOP", "span": {"offset": 14, "length": 3}, "confidence": 1.0},
          {"content": "1:", "span": {"offset": 18, "length": 2}, "confidence": 0.8},
          {"content": "Haushalt", "span": {"offset": 21, "length": 8}, "confidence": 0.9}
        ],
        "lines": [
          {"content": "Niederschrift", "polygon": [0.85, 1.1, 4.25, 1.1, 4.25, 1.65, 0.85, 1.65], "spans": [{"offset": 0, "length": 13}]},
          {"content": "TOP 1: Haushalt", "polygon": [0.85, 2.2, 4.25, 2.2, 4.25, 2.75, 0.85, 2.75], "spans": [{"offset": 14, "length": 15}]}
        ]
      }
    ]
  }
}`

type fakeService struct {
	server   *httptest.Server
	submits  atomic.Int32
	polls    atomic.Int32
	pending  int32
	submitFn func(w http.ResponseWriter, r *http.Request)
	result   string
}

func newFakeService(t *testing.T, pending int32, opts ...func(*fakeService)) *fakeService {
	t.Helper()
	f := &fakeService{pending: pending, result: layoutResult}
	for _, opt := range opts {
		opt(f)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		f.submits.Add(1)
		if f.submitFn != nil {
			f.submitFn(w, r)
			return
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`))
			return
		}
		assert.Equal(t, APIVersion, r.URL.Query().Get("api-version"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		doc, err := base64.StdEncoding.DecodeString(req.Base64Source)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(doc))

		w.Header().Set("Operation-Location", f.server.URL+"/operations/42")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		if f.polls.Add(1) <= f.pending {
			_, _ = w.Write([]byte(`{"status":"running"}`))
			return
		}
		_, _ = w.Write([]byte(f.result))
	})
	f.server = httptest.NewTLSServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

var fastRetry = policy.RetryOptions{RetryDelay: time.Millisecond, MaxRetryDelay: 5 * time.Millisecond}

func newTestClient(t *testing.T, f *fakeService, key string) *Client {
	t.Helper()
	c, err := New(Config{
		Endpoint:     f.server.URL,
		Key:          key,
		PollInterval: time.Millisecond,
		Timeout:      5 * time.Second,
		Retry:        fastRetry,
		HTTPClient:   f.server.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{Key: "k"})
	assert.Error(t, err)
	_, err = New(Config{Endpoint: "https://example"})
	assert.Error(t, err)

	c, err := New(Config{Endpoint: "https://example/", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://example", c.endpoint)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Equal(t, defaultPollInterval, c.pollInterval)
}

func TestClient_Recognize(t *testing.T) {
	f := newFakeService(t, 2)
	c := newTestClient(t, f, "secret")

	rec, err := c.Recognize(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.polls.Load())

	assert.Equal(t, pdf.MethodLayout, rec.Method)
	assert.Equal(t, 1, rec.Pages)
	require.Len(t, rec.Lines, 2)

	top := rec.Lines[1]
	assert.Equal(t, "TOP 1: Haushalt", top.Content)
	assert.Equal(t, 1, top.PageNumber)
	require.Len(t, top.Polygon, 4)
	assert.InDelta(t, 0.1, top.Polygon[0].X, 1e-9)
	assert.InDelta(t, 0.2, top.Polygon[0].Y, 1e-9)
	require.NotNil(t, top.Confidence)
	assert.InDelta(t, 0.9, *top.Confidence, 1e-9)
}

func TestClient_Unauthorized(t *testing.T) {
	f := newFakeService(t, 0)
	c := newTestClient(t, f, "wrong")

	_, err := c.Recognize(context.Background(), []byte("%PDF-1.4"))
	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusUnauthorized, respErr.StatusCode)
	assert.Equal(t, "401", respErr.ErrorCode)
	assert.Contains(t, err.Error(), "invalid subscription key")
	assert.Equal(t, int32(1), f.submits.Load(), "client errors are not retried")
}

func TestClient_AnalysisFailed(t *testing.T) {
	f := newFakeService(t, 0, func(f *fakeService) {
		f.result = `{"status":"failed","error":{"code":"InvalidContent","message":"The file is corrupted."}}`
	})
	c := newTestClient(t, f, "secret")

	_, err := c.Recognize(context.Background(), []byte("%PDF-1.4"))
	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, "InvalidContent", respErr.ErrorCode)
}

func TestClient_MissingOperationLocation(t *testing.T) {
	f := newFakeService(t, 0, func(f *fakeService) {
		f.submitFn = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) }
	})
	c := newTestClient(t, f, "secret")

	_, err := c.Recognize(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorContains(t, err, "Operation-Location")
}

func TestClient_Timeout(t *testing.T) {
	f := newFakeService(t, 1<<30)
	c, err := New(Config{
		Endpoint:     f.server.URL,
		Key:          "secret",
		PollInterval: time.Millisecond,
		Timeout:      50 * time.Millisecond,
		HTTPClient:   f.server.Client(),
	})
	require.NoError(t, err)

	_, err = c.Recognize(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_EmptyResult(t *testing.T) {
	f := newFakeService(t, 0, func(f *fakeService) {
		f.result = `{"status":"succeeded","analyzeResult":{"pages":[{"pageNumber":1,"width":8.5,"height":11,"lines":[]}]}}`
	})
	c := newTestClient(t, f, "secret")

	_, err := c.Recognize(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, pdf.ErrNoText)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"throttled", http.StatusTooManyRequests},
		{"unavailable", http.StatusServiceUnavailable},
		{"bad gateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t, 1, func(fs *fakeService) {
				fs.submitFn = func(w http.ResponseWriter, r *http.Request) {
					if fs.submits.Load() == 1 {
						w.WriteHeader(tt.status)
						return
					}
					assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
					w.Header().Set("Operation-Location", fs.server.URL+"/operations/42")
					w.WriteHeader(http.StatusAccepted)
				}
			})
			c := newTestClient(t, f, "secret")

			rec, err := c.Recognize(context.Background(), []byte("%PDF-1.4"))
			require.NoError(t, err)
			assert.Len(t, rec.Lines, 2)
			assert.Equal(t, int32(2), f.submits.Load())
		})
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFakeService(t, 0, func(f *fakeService) {
		f.submitFn = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	c, err := New(Config{
		Endpoint:   f.server.URL,
		Key:        "secret",
		Retry:      policy.RetryOptions{MaxRetries: 2, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond},
		HTTPClient: f.server.Client(),
	})
	require.NoError(t, err)

	_, err = c.Recognize(context.Background(), []byte("%PDF-1.4"))
	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusServiceUnavailable, respErr.StatusCode)
	assert.Equal(t, int32(3), f.submits.Load())
}

func TestClient_RefusesKeyOverPlainHTTP(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)

	c, err := New(Config{Endpoint: server.URL, Key: "secret", HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = c.Recognize(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorContains(t, err, "https")
	assert.Zero(t, hits.Load())
}
