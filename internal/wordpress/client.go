// Package wordpress is a small client for the WordPress REST API (wp/v2)
// authenticated with an application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
)

// Sentinel errors for WordPress client failures.
var (
	ErrUpload      = errors.New("WordPress media upload failed")
	ErrRequest     = errors.New("WordPress request failed")
	ErrUnreachable = errors.New("WordPress unreachable")
	ErrTimeout     = errors.New("WordPress request timeout")
)

// MediaMetadata is the descriptive text attached to an uploaded image.
type MediaMetadata struct {
	AltText     string `json:"alt_text"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
}

// PostUpdate is the partial post written back after enhancement.
type PostUpdate struct {
	Content       string            `json:"content"`
	FeaturedMedia int64             `json:"featured_media"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Client is the interface the enhancement pipeline uses to talk to WordPress.
type Client interface {
	UploadMedia(ctx context.Context, data []byte, filename, contentType string) (int64, error)
	UpdateMedia(ctx context.Context, mediaID int64, meta MediaMetadata) error
	GetPostContent(ctx context.Context, postID int64) (string, error)
	UpdatePost(ctx context.Context, postID int64, update PostUpdate) error
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewHTTPClient creates a new WordPress REST client.
func NewHTTPClient(cfg config.WordPressConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.AppPassword,
		client:   &http.Client{Timeout: timeout},
	}
}

// UploadMedia posts raw image bytes to /wp/v2/media and returns the new media id.
func (c *HTTPClient) UploadMedia(ctx context.Context, data []byte, filename, contentType string) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/media", bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(httpReq)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.send(httpReq, &out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if out.ID == 0 {
		return 0, fmt.Errorf("%w: response carried no media id", ErrUpload)
	}
	return out.ID, nil
}

// UpdateMedia sets alt text, caption, and description on a media item.
func (c *HTTPClient) UpdateMedia(ctx context.Context, mediaID int64, meta MediaMetadata) error {
	return c.postJSON(ctx, fmt.Sprintf("%s/wp-json/wp/v2/media/%d", c.baseURL, mediaID), meta, nil)
}

// GetPostContent returns the raw (unrendered) content of a post.
func (c *HTTPClient) GetPostContent(ctx context.Context, postID int64) (string, error) {
	u := fmt.Sprintf("%s/wp-json/wp/v2/posts/%d?context=edit", c.baseURL, postID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	c.setAuth(httpReq)

	var out struct {
		Content struct {
			Raw string `json:"raw"`
		} `json:"content"`
	}
	if err := c.send(httpReq, &out); err != nil {
		return "", fmt.Errorf("get post %d: %w", postID, err)
	}
	return out.Content.Raw, nil
}

// UpdatePost writes content, featured media, and meta to a post.
func (c *HTTPClient) UpdatePost(ctx context.Context, postID int64, update PostUpdate) error {
	if err := c.postJSON(ctx, fmt.Sprintf("%s/wp-json/wp/v2/posts/%d", c.baseURL, postID), update, nil); err != nil {
		return fmt.Errorf("update post %d: %w", postID, err)
	}
	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, u string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setAuth(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	return c.send(httpReq, out)
}

func (c *HTTPClient) send(httpReq *http.Request, out any) error {
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HTTPClient) setAuth(r *http.Request) {
	r.SetBasicAuth(c.username, c.password)
}

// newAPIError prefers the WordPress error envelope ({code,message}) and
// falls back to a redacted body snippet.
func newAPIError(status int, body []byte) error {
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil && env.Code != "" {
		return fmt.Errorf("%w: status %d: %s: %s", ErrRequest, status, env.Code, redact.Secrets(env.Message))
	}
	return fmt.Errorf("%w: status %d: %s", ErrRequest, status, redact.Snippet(body, 256))
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

var _ Client = (*HTTPClient)(nil)
