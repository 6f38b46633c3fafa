// Package youtube finds the most relevant video on a channel through the
// YouTube Data API v3 search endpoint.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/cache"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

// ErrSearch is returned when the search request fails.
var ErrSearch = errors.New("youtube search failed")

// Searcher looks up a single video for a query. A nil video with a nil
// error means nothing matched.
type Searcher interface {
	Search(ctx context.Context, query string) (*models.Video, error)
}

// Client implements Searcher over HTTP with an optional result cache.
type Client struct {
	apiKey    string
	channelID string
	baseURL   string
	cacheTTL  time.Duration
	cache     cache.Cache
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a YouTube search client. c may be nil to disable caching.
func NewClient(cfg config.YouTubeConfig, c cache.Cache, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}
	return &Client{
		apiKey:    cfg.APIKey,
		channelID: cfg.ChannelID,
		baseURL:   baseURL,
		cacheTTL:  cfg.CacheTTL,
		cache:     c,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// cachedResult distinguishes "no video" from a cache miss.
type cachedResult struct {
	Video *models.Video `json:"video"`
}

// Search returns the top relevance-ordered video on the channel for query.
func (c *Client) Search(ctx context.Context, query string) (*models.Video, error) {
	key := cache.YouTubeSearchKey(c.channelID, query)
	if v, ok := c.lookup(ctx, key); ok {
		return v, nil
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("channelId", c.channelID)
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("part", "snippet")
	params.Set("maxResults", "1")
	params.Set("order", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrSearch, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSearch, redact.Secrets(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrSearch, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearch, resp.StatusCode, redact.Snippet(body, 256))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSearch, err)
	}

	var video *models.Video
	if len(sr.Items) > 0 && sr.Items[0].ID.VideoID != "" {
		video = &models.Video{ID: sr.Items[0].ID.VideoID, Title: sr.Items[0].Snippet.Title}
	}
	c.store(ctx, key, video)
	return video, nil
}

func (c *Client) lookup(ctx context.Context, key string) (*models.Video, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	raw, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "youtube cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var cr cachedResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, false
	}
	return cr.Video, true
}

func (c *Client) store(ctx context.Context, key string, v *models.Video) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(cachedResult{Video: v})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.WarnContext(ctx, "youtube cache write failed", slog.String("error", err.Error()))
	}
}

var _ Searcher = (*Client)(nil)
