package redact_test

import (
	"strings"
	"testing"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
	"github.com/stretchr/testify/assert"
)

func TestSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bearer", `Authorization: Bearer abc.def.ghi`, `Authorization: Bearer <redacted>`},
		{"basic", `Basic dXNlcjpwYXNz failed`, `Basic <redacted> failed`},
		{"query key", `Get "https://www.googleapis.com/youtube/v3/search?key=AIza123&q=foam"`, `Get "https://www.googleapis.com/youtube/v3/search?key=<redacted>&q=foam"`},
		{"telegram bot", `Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage"`, `Post "https://api.telegram.org/bot<redacted>/sendMessage"`},
		{"plain", "kie.ai: generation failed - quota exceeded", "kie.ai: generation failed - quota exceeded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redact.Secrets(tt.in))
		})
	}
}

func TestSnippet_TruncatesAndFlattens(t *testing.T) {
	body := []byte("line one\nline two " + strings.Repeat("x", 300))

	got := redact.Snippet(body, 20)
	assert.Equal(t, "line one line two xx...", got)
	assert.NotContains(t, got, "\n")
}

func TestSnippet_Empty(t *testing.T) {
	assert.Empty(t, redact.Snippet(nil, 10))
}
