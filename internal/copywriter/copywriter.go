// Package copywriter drafts SEO meta descriptions with Gemini when the
// publisher did not supply one.
package copywriter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"google.golang.org/genai"
)

// MaxDescriptionLen is the length search engines typically display.
const MaxDescriptionLen = 160

// ErrEmptyDescription is returned when the model produced no usable text.
var ErrEmptyDescription = errors.New("copywriter: empty description")

// Writer produces a meta description for a post.
type Writer interface {
	MetaDescription(ctx context.Context, title, focusKeyword string) (string, error)
}

// Gemini implements Writer with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	brand  string
	region string
}

// NewGemini creates a Gemini-backed Writer.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, profile config.SiteProfile) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
		brand:  profile.Brand,
		region: profile.Region,
	}, nil
}

func (g *Gemini) MetaDescription(ctx context.Context, title, focusKeyword string) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(buildPrompt(title, focusKeyword, g.brand, g.region)),
		&genai.GenerateContentConfig{
			CandidateCount:  1,
			MaxOutputTokens: 200,
		},
	)
	if err != nil {
		return "", fmt.Errorf("copywriter: generate: %w", err)
	}

	desc := normalize(resp.Text())
	if desc == "" {
		return "", ErrEmptyDescription
	}
	return desc, nil
}

func buildPrompt(title, focusKeyword, brand, region string) string {
	var b strings.Builder
	b.WriteString("Write one SEO meta description for a blog post.\n")
	fmt.Fprintf(&b, "Business: %s (%s).\n", brand, region)
	fmt.Fprintf(&b, "Post title: %s\n", title)
	if focusKeyword != "" {
		fmt.Fprintf(&b, "Focus keyword (use it once, naturally): %s\n", focusKeyword)
	}
	fmt.Fprintf(&b, "Rules: plain text only, no quotes, no hashtags, at most %d characters.\n", MaxDescriptionLen)
	return b.String()
}

// normalize collapses whitespace, strips wrapping quotes and trims the text
// to MaxDescriptionLen runes on a word boundary.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'“”")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxDescriptionLen {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:MaxDescriptionLen])
	if i := strings.LastIndex(cut, " "); i > MaxDescriptionLen/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}

var _ Writer = (*Gemini)(nil)
