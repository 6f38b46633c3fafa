package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
)

// ImageGenerator produces ad hoc social images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, topic string) (*enhance.GeneratedImage, error)
}

// NewGenerateImageHandler returns an http.HandlerFunc for POST /generate-image.
// The request blocks until the image is ready or the waiter gives up.
func NewGenerateImageHandler(gen ImageGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
			Topic  string `json:"topic"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		img, err := gen.GenerateImage(r.Context(), req.Prompt, req.Topic)
		if err != nil {
			switch {
			case errors.Is(err, enhance.ErrPromptRequired):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			case errors.Is(err, waiter.ErrTimeout):
				response.Error(w, http.StatusGatewayTimeout, "IMAGE_TIMEOUT", redact.Secrets(err.Error()), nil)
			default:
				slog.ErrorContext(r.Context(), "image generation failed", "error", redact.Secrets(err.Error()))
				response.Error(w, http.StatusInternalServerError,
					"IMAGE_GENERATION_FAILED", redact.Secrets(err.Error()), nil)
			}
			return
		}

		response.JSON(w, img)
	}
}
