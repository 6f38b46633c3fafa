package copywriter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGemini(t *testing.T, text string, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if gotPrompt != nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			*gotPrompt = req.Contents[0].Parts[0].Text
		}

		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestWriter(t *testing.T, baseURL string) *Gemini {
	t.Helper()
	g, err := NewGemini(context.Background(), config.GeminiConfig{
		APIKey:  "gemini-key",
		Model:   "gemini-test",
		BaseURL: baseURL,
	}, config.DefaultSiteProfile())
	require.NoError(t, err)
	return g
}

func TestMetaDescription_ReturnsNormalizedText(t *testing.T) {
	var prompt string
	srv := fakeGemini(t, "  \"Closed-cell spray foam keeps Ontario attics dry.\"\n", &prompt)
	defer srv.Close()

	desc, err := newTestWriter(t, srv.URL).MetaDescription(context.Background(), "Attic Insulation Guide", "attic spray foam")
	require.NoError(t, err)
	assert.Equal(t, "Closed-cell spray foam keeps Ontario attics dry.", desc)
	assert.Contains(t, prompt, "Attic Insulation Guide")
	assert.Contains(t, prompt, "attic spray foam")
	assert.Contains(t, prompt, "Spray Foam Kings")
}

func TestMetaDescription_EmptyResponse(t *testing.T) {
	srv := fakeGemini(t, "   ", nil)
	defer srv.Close()

	_, err := newTestWriter(t, srv.URL).MetaDescription(context.Background(), "t", "")
	assert.ErrorIs(t, err, ErrEmptyDescription)
}

func TestMetaDescription_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
	}))
	defer srv.Close()

	_, err := newTestWriter(t, srv.URL).MetaDescription(context.Background(), "t", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copywriter: generate")
}

func TestNewGemini_RequiresKeyAndModel(t *testing.T) {
	_, err := NewGemini(context.Background(), config.GeminiConfig{Model: "m"}, config.DefaultSiteProfile())
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = NewGemini(context.Background(), config.GeminiConfig{APIKey: "k"}, config.DefaultSiteProfile())
	assert.ErrorContains(t, err, "GEMINI_MODEL")
}

func TestBuildPrompt_OmitsEmptyKeyword(t *testing.T) {
	p := buildPrompt("Title", "", "Brand", "Region")
	assert.NotContains(t, p, "Focus keyword")
	assert.Contains(t, p, "Brand (Region)")
}

func TestNormalize(t *testing.T) {
	long := strings.Repeat("spray foam ", 30)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  hello   world \n", "hello world"},
		{"strips quotes", `"quoted"`, "quoted"},
		{"strips smart quotes", "“smart”", "smart"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalize(tc.in))
		})
	}

	t.Run("truncates on word boundary", func(t *testing.T) {
		got := normalize(long)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxDescriptionLen)
		assert.True(t, strings.HasSuffix(got, "foam") || strings.HasSuffix(got, "spray"), got)
	})
}
