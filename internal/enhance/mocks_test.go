package enhance_test

import (
	"context"
	"sync"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/wordpress"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

// --- mocks ---

type mockWaiter struct {
	GenerateFunc func(ctx context.Context, req waiter.Request) (string, error)

	mu       sync.Mutex
	requests []waiter.Request
}

func (m *mockWaiter) Name() string { return "mock" }
func (m *mockWaiter) Pending() int { return 0 }

func (m *mockWaiter) Generate(ctx context.Context, req waiter.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "https://tempfile.kie.ai/img.png", nil
}

func (m *mockWaiter) Requests() []waiter.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]waiter.Request(nil), m.requests...)
}

type mockFetcher struct {
	FetchFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	return []byte("png-bytes"), nil
}

type mockTranscoder struct {
	ToJPEGFunc func(ctx context.Context, in []byte) ([]byte, error)
}

func (m *mockTranscoder) Name() string { return "mock" }

func (m *mockTranscoder) ToJPEG(ctx context.Context, in []byte) ([]byte, error) {
	if m.ToJPEGFunc != nil {
		return m.ToJPEGFunc(ctx, in)
	}
	return []byte("jpeg-bytes"), nil
}

type uploadCall struct {
	Data        []byte
	Filename    string
	ContentType string
}

type mockWordPress struct {
	UploadFunc      func(ctx context.Context, data []byte, filename, contentType string) (int64, error)
	UpdateMediaFunc func(ctx context.Context, id int64, meta wordpress.MediaMetadata) error
	GetPostFunc     func(ctx context.Context, postID int64) (string, error)
	UpdatePostFunc  func(ctx context.Context, postID int64, u wordpress.PostUpdate) error

	mu          sync.Mutex
	uploads     []uploadCall
	mediaMeta   []wordpress.MediaMetadata
	postUpdates []wordpress.PostUpdate
}

func (m *mockWordPress) UploadMedia(ctx context.Context, data []byte, filename, contentType string) (int64, error) {
	m.mu.Lock()
	m.uploads = append(m.uploads, uploadCall{Data: data, Filename: filename, ContentType: contentType})
	m.mu.Unlock()
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, data, filename, contentType)
	}
	return 881, nil
}

func (m *mockWordPress) UpdateMedia(ctx context.Context, id int64, meta wordpress.MediaMetadata) error {
	m.mu.Lock()
	m.mediaMeta = append(m.mediaMeta, meta)
	m.mu.Unlock()
	if m.UpdateMediaFunc != nil {
		return m.UpdateMediaFunc(ctx, id, meta)
	}
	return nil
}

func (m *mockWordPress) GetPostContent(ctx context.Context, postID int64) (string, error) {
	if m.GetPostFunc != nil {
		return m.GetPostFunc(ctx, postID)
	}
	return "<p>Original content</p>", nil
}

func (m *mockWordPress) UpdatePost(ctx context.Context, postID int64, u wordpress.PostUpdate) error {
	m.mu.Lock()
	m.postUpdates = append(m.postUpdates, u)
	m.mu.Unlock()
	if m.UpdatePostFunc != nil {
		return m.UpdatePostFunc(ctx, postID, u)
	}
	return nil
}

func (m *mockWordPress) Uploads() []uploadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uploadCall(nil), m.uploads...)
}

func (m *mockWordPress) PostUpdates() []wordpress.PostUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]wordpress.PostUpdate(nil), m.postUpdates...)
}

type mockVideos struct {
	SearchFunc func(ctx context.Context, query string) (*models.Video, error)

	mu      sync.Mutex
	queries []string
}

func (m *mockVideos) Search(ctx context.Context, query string) (*models.Video, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return nil, nil
}

type mockCopywriter struct {
	Func func(ctx context.Context, title, keyword string) (string, error)
}

func (m *mockCopywriter) MetaDescription(ctx context.Context, title, keyword string) (string, error) {
	return m.Func(ctx, title, keyword)
}

type mockArchiver struct {
	ArchiveFunc func(ctx context.Context, postID int64, filename string, data []byte, contentType string) (string, error)
	calls       int
}

func (m *mockArchiver) Archive(ctx context.Context, postID int64, filename string, data []byte, contentType string) (string, error) {
	m.calls++
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, postID, filename, data, contentType)
	}
	return "featured/key.jpg", nil
}

type mockNotifier struct {
	NotifyFunc func(ctx context.Context, text string) error

	mu   sync.Mutex
	sent []string
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, text)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, text)
	}
	return nil
}

func (m *mockNotifier) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type mockDispatcher struct {
	DispatchFunc func(ctx context.Context, job enhance.Job) error
	jobs         []enhance.Job
}

func (m *mockDispatcher) Dispatch(ctx context.Context, job enhance.Job) error {
	m.jobs = append(m.jobs, job)
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, job)
	}
	return nil
}
