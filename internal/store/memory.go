package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

// MemoryStore keeps runs in process memory. It is used when no database is
// configured; history is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*models.Run
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID]*models.Run)}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateRun(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return ErrDuplicateKey
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRun(r), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := []*models.Run{}
	for _, r := range s.runs {
		if filter.PostID != 0 && r.PostID != filter.PostID {
			continue
		}
		runs = append(runs, cloneRun(r))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit := filter.limit(); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) UpdateRunStatus(_ context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error {
	params := &runUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	if err := checkTransition(r.Status, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.Status = status
	r.UpdatedAt = now
	if status == models.RunStatusRunning {
		r.StartedAt = &now
	}
	if status == models.RunStatusCompleted || status == models.RunStatusFailed {
		r.CompletedAt = &now
	}
	if params.ErrorMessage != nil {
		r.ErrorMessage = params.ErrorMessage
	}
	if params.ImageURL != nil {
		r.ImageURL = params.ImageURL
	}
	if params.MediaID != nil {
		r.MediaID = params.MediaID
	}
	if params.VideoID != nil {
		r.VideoID = params.VideoID
	}
	return nil
}

// cloneRun copies the run so callers never share pointers with the map.
func cloneRun(r *models.Run) *models.Run {
	c := *r
	c.ImageURL = clonePtr(r.ImageURL)
	c.MediaID = clonePtr(r.MediaID)
	c.VideoID = clonePtr(r.VideoID)
	c.ErrorMessage = clonePtr(r.ErrorMessage)
	c.StartedAt = clonePtr(r.StartedAt)
	c.CompletedAt = clonePtr(r.CompletedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ Store = (*MemoryStore)(nil)
