// Package handler holds the HTTP handlers. Each constructor takes the
// narrow interface it needs so handlers can be tested without the pipeline.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

const maxBodyBytes = 1 << 20

// Enhancer starts enhancement runs.
type Enhancer interface {
	Trigger(ctx context.Context, req models.EnhanceRequest) (*models.Run, error)
}

// EnhanceAck is returned as soon as a run is scheduled.
type EnhanceAck struct {
	RunID   uuid.UUID `json:"run_id"`
	PostID  int64     `json:"post_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// NewEnhanceHandler returns an http.HandlerFunc for POST /enhance.
func NewEnhanceHandler(svc Enhancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.EnhanceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		run, err := svc.Trigger(r.Context(), req)
		if err != nil {
			if errors.Is(err, enhance.ErrInvalidRequest) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return
			}
			slog.ErrorContext(r.Context(), "enhancement trigger failed",
				"post_id", req.PostID, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to start enhancement", nil)
			return
		}

		response.Accepted(w, EnhanceAck{
			RunID:   run.ID,
			PostID:  run.PostID,
			Status:  run.Status,
			Message: "Enhancement started",
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
