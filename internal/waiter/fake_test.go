package waiter_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
)

// fakeKie satisfies kie.Client for testing.
type fakeKie struct {
	mu         sync.Mutex
	created    []kie.TaskRequest
	queries    int
	nextID     int
	CreateFunc func(ctx context.Context, req kie.TaskRequest) (string, error)
	QueryFunc  func(ctx context.Context, taskID string, attempt int) (*kie.TaskRecord, error)
}

func (f *fakeKie) CreateTask(ctx context.Context, req kie.TaskRequest) (string, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	f.nextID++
	id := fmt.Sprintf("task-%d", f.nextID)
	f.mu.Unlock()

	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, req)
	}
	return id, nil
}

func (f *fakeKie) QueryTask(ctx context.Context, taskID string) (*kie.TaskRecord, error) {
	f.mu.Lock()
	f.queries++
	attempt := f.queries
	f.mu.Unlock()

	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, taskID, attempt)
	}
	return &kie.TaskRecord{TaskID: taskID, State: kie.StateGenerating}, nil
}

func (f *fakeKie) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *fakeKie) lastRequest() kie.TaskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

func successPayload(taskID, url string) kie.CallbackPayload {
	return kie.CallbackPayload{
		Code: 200,
		Data: kie.TaskRecord{
			TaskID:     taskID,
			State:      kie.StateSuccess,
			ResultJSON: fmt.Sprintf(`{"resultUrls":[%q]}`, url),
		},
	}
}

func failPayload(taskID, msg string) kie.CallbackPayload {
	return kie.CallbackPayload{
		Code: 501,
		Data: kie.TaskRecord{TaskID: taskID, State: kie.StateFail, FailMsg: msg},
	}
}
