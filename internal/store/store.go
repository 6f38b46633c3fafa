package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid run status transition")

// Store is the data access interface for enhancement runs.
type Store interface {
	Ping(ctx context.Context) error

	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error
}

// RunFilter narrows ListRuns. A zero PostID matches every post.
type RunFilter struct {
	PostID int64
	Limit  int
}

// List sizes applied by ListRuns.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

func (f RunFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

type runUpdateParams struct {
	ErrorMessage *string
	ImageURL     *string
	MediaID      *int64
	VideoID      *string
}

type RunUpdateOption func(*runUpdateParams)

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithImageURL(url string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ImageURL = &url
	}
}

func WithMediaID(id int64) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.MediaID = &id
	}
}

func WithVideoID(id string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.VideoID = &id
	}
}

var validTransitions = map[string][]string{
	models.RunStatusPending: {models.RunStatusRunning, models.RunStatusFailed},
	models.RunStatusRunning: {models.RunStatusCompleted, models.RunStatusFailed},
}

func checkTransition(from, to string) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
