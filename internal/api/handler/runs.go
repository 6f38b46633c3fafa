package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/store"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

// RunReader exposes run history.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]*models.Run, error)
}

// NewGetRunHandler returns an http.HandlerFunc for GET /runs/{runID}.
func NewGetRunHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "run id must be a UUID", nil)
			return
		}

		run, err := runs.GetRun(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Run not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load run", nil)
			return
		}

		response.JSON(w, run)
	}
}

// NewListRunsHandler returns an http.HandlerFunc for GET /runs.
func NewListRunsHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter store.RunFilter
		q := r.URL.Query()

		if v := q.Get("post_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "post_id must be a positive integer", nil)
				return
			}
			filter.PostID = id
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > store.MaxListLimit {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be between 1 and "+strconv.Itoa(store.MaxListLimit), nil)
				return
			}
			filter.Limit = n
		}

		list, err := runs.ListRuns(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list runs", nil)
			return
		}
		if list == nil {
			list = []*models.Run{}
		}

		limit := filter.Limit
		if limit == 0 {
			limit = store.DefaultListLimit
		}
		response.Collection(w, list, response.ListMeta{Limit: limit, Count: len(list)})
	}
}
