// Package kie talks to the kie.ai job API used for featured image generation.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
	"golang.org/x/time/rate"
)

// Sentinel errors for kie.ai client failures.
var (
	ErrUnreachable = errors.New("kie.ai unreachable")
	ErrAPI         = errors.New("kie.ai api error")
	ErrTimeout     = errors.New("kie.ai request timeout")
	ErrNoTaskID    = errors.New("kie.ai: no taskId")
	ErrBadResult   = errors.New("kie.ai: failed to parse resultJson")
)

// Task states reported by recordInfo and the completion callback.
const (
	StateWaiting    = "waiting"
	StateQueuing    = "queuing"
	StateGenerating = "generating"
	StateSuccess    = "success"
	StateFail       = "fail"
)

// Client is the interface for submitting and inspecting generation tasks.
type Client interface {
	CreateTask(ctx context.Context, req TaskRequest) (string, error)
	QueryTask(ctx context.Context, taskID string) (*TaskRecord, error)
}

// TaskRequest describes one image to generate. An empty CallbackURL means
// the caller will poll for the result.
type TaskRequest struct {
	Prompt      string
	AspectRatio string
	CallbackURL string
}

// TaskRecord is the task view shared by recordInfo responses and callbacks.
type TaskRecord struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailMsg    string `json:"failMsg"`
}

// CallbackPayload is the body kie.ai posts to the callback URL.
type CallbackPayload struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data TaskRecord `json:"data"`
}

// ResultURL extracts the first image URL from the embedded resultJson.
// It returns "" with no error when the result carries no URLs.
func (r TaskRecord) ResultURL() (string, error) {
	if r.ResultJSON == "" {
		return "", nil
	}
	var result struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal([]byte(r.ResultJSON), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResult, err)
	}
	if len(result.ResultURLs) == 0 {
		return "", nil
	}
	return result.ResultURLs[0], nil
}

// FailReason returns the provider failure message or "unknown".
func (r TaskRecord) FailReason() string {
	if r.FailMsg == "" {
		return "unknown"
	}
	return r.FailMsg
}

// HTTPClient implements Client using the kie.ai REST API.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	model        string
	resolution   string
	outputFormat string
	client       *http.Client
	limiter      *rate.Limiter
}

// NewHTTPClient creates a new kie.ai client.
func NewHTTPClient(cfg config.KieConfig) *HTTPClient {
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		resolution:   cfg.Resolution,
		outputFormat: cfg.OutputFormat,
		client:       &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(limit, 1),
	}
}

type createTaskBody struct {
	Model       string    `json:"model"`
	CallBackURL string    `json:"callBackUrl,omitempty"`
	Input       inputBody `json:"input"`
}

type inputBody struct {
	Prompt       string `json:"prompt"`
	AspectRatio  string `json:"aspect_ratio"`
	Resolution   string `json:"resolution"`
	OutputFormat string `json:"output_format"`
}

type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *T     `json:"data"`
}

func (c *HTTPClient) CreateTask(ctx context.Context, req TaskRequest) (string, error) {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}
	body, err := json.Marshal(createTaskBody{
		Model:       c.model,
		CallBackURL: req.CallbackURL,
		Input: inputBody{
			Prompt:       req.Prompt,
			AspectRatio:  aspect,
			Resolution:   c.resolution,
			OutputFormat: c.outputFormat,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding create task body: %w", err)
	}

	var out envelope[struct {
		TaskID string `json:"taskId"`
	}]
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/jobs/createTask", body, &out); err != nil {
		return "", err
	}
	if out.Data == nil || out.Data.TaskID == "" {
		return "", ErrNoTaskID
	}
	return out.Data.TaskID, nil
}

func (c *HTTPClient) QueryTask(ctx context.Context, taskID string) (*TaskRecord, error) {
	u := fmt.Sprintf("%s/api/v1/jobs/recordInfo?%s", c.baseURL, url.Values{"taskId": {taskID}}.Encode())

	var out envelope[TaskRecord]
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%w: empty record for task %s", ErrAPI, taskID)
	}
	return out.Data, nil
}

// do sends one JSON request and decodes the kie.ai envelope into out.
func (c *HTTPClient) do(ctx context.Context, method, u string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading kie.ai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, redact.Snippet(raw, 256))
	}

	var status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("decoding kie.ai response: %w", err)
	}
	if status.Code != 0 && status.Code != http.StatusOK {
		return fmt.Errorf("%w: code %d: %s", ErrAPI, status.Code, status.Msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding kie.ai response: %w", err)
	}
	return nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %s", ErrUnreachable, redact.Secrets(err.Error()))
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)
