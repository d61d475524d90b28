package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultPollInterval = 2 * time.Second
	requestTimeout      = 30 * time.Minute
)

// ProgressFunc is called during polling with the transcript ID, a progress
// percentage, and the raw API status.
type ProgressFunc func(id string, percent int, status string)

// UploadProgressFunc is called with (bytesRead, totalBytes) during upload.
type UploadProgressFunc func(bytesRead, totalBytes int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	callback UploadProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.read += int64(n)
	if pr.callback != nil {
		pr.callback(pr.read, pr.total)
	}
	return n, err
}

// Client talks to the AssemblyAI v2 REST API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval sets the transcript polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates an API client. The key falls back to the
// ASSEMBLYAI_API_KEY environment variable.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: requestTimeout}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	return c
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Upload streams raw audio bytes to the upload endpoint and returns the
// temporary audio URL for transcript submission. An empty contentType falls
// back to application/octet-stream.
func (c *Client) Upload(ctx context.Context, r io.Reader, size int64, contentType string, progress UploadProgressFunc) (string, error) {
	body := io.Reader(r)
	if progress != nil {
		body = &progressReader{reader: r, total: size, callback: progress}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	var ur uploadResponse
	if err := c.do(req, &ur); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if ur.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return ur.UploadURL, nil
}

// Submit creates a transcription job and returns the initial transcript
// resource (normally in the queued state).
func (c *Client) Submit(ctx context.Context, params TranscriptParams) (*Transcript, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var t Transcript
	if err := c.do(req, &t); err != nil {
		return nil, fmt.Errorf("submit transcript: %w", err)
	}
	return &t, nil
}

// Get fetches the current state of a transcript.
func (c *Client) Get(ctx context.Context, id string) (*Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create get request: %w", err)
	}

	var t Transcript
	if err := c.do(req, &t); err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", id, err)
	}
	return &t, nil
}

// Wait polls the transcript until it completes or fails.
func (c *Client) Wait(ctx context.Context, id string, progress ProgressFunc) (*Transcript, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		t, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if progress != nil {
			progress(id, progressForStatus(t.Status), t.Status)
		}

		switch t.Status {
		case StatusCompleted:
			return t, nil
		case StatusError:
			return nil, fmt.Errorf("%w: %s", errTranscriptFailed, t.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Transcribe uploads the audio, submits a job, and waits for the result.
// Upload progress is logged at debug level in ten-percent steps.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, size int64, contentType string, params TranscriptParams, progress ProgressFunc) (*Transcript, error) {
	logged := int64(-1)
	uploadProgress := func(read, total int64) {
		if total <= 0 {
			return
		}
		pct := read * 100 / total
		if decile := pct / 10; decile > logged {
			logged = decile
			slog.Debug("uploading audio", "percent", pct)
		}
	}

	audioURL, err := c.Upload(ctx, audio, size, contentType, uploadProgress)
	if err != nil {
		return nil, err
	}
	slog.Debug("audio uploaded", "url", audioURL)

	params.AudioURL = audioURL
	t, err := c.Submit(ctx, params)
	if err != nil {
		return nil, err
	}
	slog.Debug("transcript submitted", "id", t.ID, "status", t.Status)

	return c.Wait(ctx, t.ID, progress)
}

// progressForStatus maps an API status to a rough completion percentage.
func progressForStatus(status string) int {
	switch status {
	case StatusQueued:
		return 10
	case StatusProcessing:
		return 50
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// SplitKeyterms parses a comma-separated keyterms prompt into individual
// terms, trimming whitespace and dropping empty entries.
func SplitKeyterms(prompt string) []string {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	var terms []string
	for _, part := range strings.Split(prompt, ",") {
		if term := strings.TrimSpace(part); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
