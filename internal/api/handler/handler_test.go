package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/handler"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/store"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockEnhancer struct {
	TriggerFunc func(ctx context.Context, req models.EnhanceRequest) (*models.Run, error)
	got         []models.EnhanceRequest
}

func (m *mockEnhancer) Trigger(ctx context.Context, req models.EnhanceRequest) (*models.Run, error) {
	m.got = append(m.got, req)
	return m.TriggerFunc(ctx, req)
}

type mockCallbacks struct {
	matched  bool
	payloads []kie.CallbackPayload
}

func (m *mockCallbacks) HandleCallback(p kie.CallbackPayload) bool {
	m.payloads = append(m.payloads, p)
	return m.matched
}

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt, topic string) (*enhance.GeneratedImage, error)
}

func (m *mockGenerator) GenerateImage(ctx context.Context, prompt, topic string) (*enhance.GeneratedImage, error) {
	return m.GenerateFunc(ctx, prompt, topic)
}

type mockRuns struct {
	runs    map[uuid.UUID]*models.Run
	err     error
	filters []store.RunFilter
}

func (m *mockRuns) GetRun(_ context.Context, id uuid.UUID) (*models.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *mockRuns) ListRuns(_ context.Context, f store.RunFilter) ([]*models.Run, error) {
	m.filters = append(m.filters, f)
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Run
	for _, r := range m.runs {
		if f.PostID == 0 || r.PostID == f.PostID {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubWaiter struct {
	name    string
	pending int
}

func (s stubWaiter) Name() string { return s.name }
func (s stubWaiter) Pending() int { return s.pending }
func (s stubWaiter) Generate(context.Context, waiter.Request) (string, error) {
	return "", errors.New("not used")
}

// --- helpers ---

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return decode(t, w)["data"].(map[string]any)
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return decode(t, w)["error"].(map[string]any)
}

// ========================================
// POST /enhance
// ========================================

func TestEnhance_Accepted(t *testing.T) {
	runID := uuid.New()
	svc := &mockEnhancer{TriggerFunc: func(_ context.Context, req models.EnhanceRequest) (*models.Run, error) {
		return &models.Run{ID: runID, PostID: req.PostID, Status: models.RunStatusPending}, nil
	}}
	h := handler.NewEnhanceHandler(svc)

	w := doRequest(h, "POST", "/enhance", `{
		"post_id": 1234,
		"post_url": "https://sprayfoamkings.com/attic/",
		"title": "Attic Insulation Guide",
		"image_prompt": "foam in an attic",
		"focus_keyword": "attic spray foam",
		"meta_description": "All about attic foam.",
		"topic": "attic insulation"
	}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, runID.String(), data["run_id"])
	assert.Equal(t, float64(1234), data["post_id"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "Enhancement started", data["message"])

	require.Len(t, svc.got, 1)
	assert.Equal(t, models.EnhanceRequest{
		PostID:          1234,
		PostURL:         "https://sprayfoamkings.com/attic/",
		Title:           "Attic Insulation Guide",
		ImagePrompt:     "foam in an attic",
		FocusKeyword:    "attic spray foam",
		MetaDescription: "All about attic foam.",
		Topic:           "attic insulation",
	}, svc.got[0])
}

func TestEnhance_InvalidJSON(t *testing.T) {
	svc := &mockEnhancer{}
	w := doRequest(handler.NewEnhanceHandler(svc), "POST", "/enhance", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorOf(t, w)["code"])
	assert.Empty(t, svc.got)
}

func TestEnhance_ValidationError(t *testing.T) {
	svc := &mockEnhancer{TriggerFunc: func(_ context.Context, req models.EnhanceRequest) (*models.Run, error) {
		return nil, enhance.Validate(req)
	}}
	w := doRequest(handler.NewEnhanceHandler(svc), "POST", "/enhance", `{"title":"x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errObj := errorOf(t, w)
	assert.Equal(t, "INVALID_REQUEST", errObj["code"])
	assert.Contains(t, errObj["message"], "post_id")
}

func TestEnhance_TriggerFailure(t *testing.T) {
	svc := &mockEnhancer{TriggerFunc: func(context.Context, models.EnhanceRequest) (*models.Run, error) {
		return nil, errors.New("dispatching run: redis down")
	}}
	w := doRequest(handler.NewEnhanceHandler(svc), "POST", "/enhance", `{"post_id":1,"title":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errObj := errorOf(t, w)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
	assert.NotContains(t, errObj["message"], "redis")
}

// ========================================
// POST /kie-callback
// ========================================

func TestCallback_DeliversPayload(t *testing.T) {
	cb := &mockCallbacks{matched: true}
	w := doRequest(handler.NewCallbackHandler(cb), "POST", "/kie-callback",
		`{"code":200,"msg":"success","data":{"taskId":"task-1","state":"success","resultJson":"{\"resultUrls\":[\"https://tempfile.kie.ai/a.png\"]}"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, true, data["matched"])

	require.Len(t, cb.payloads, 1)
	assert.Equal(t, "task-1", cb.payloads[0].Data.TaskID)
	assert.Equal(t, "success", cb.payloads[0].Data.State)
}

func TestCallback_UnknownTaskStillAcknowledged(t *testing.T) {
	cb := &mockCallbacks{matched: false}
	w := doRequest(handler.NewCallbackHandler(cb), "POST", "/kie-callback",
		`{"data":{"taskId":"nobody","state":"fail","failMsg":"x"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, dataOf(t, w)["matched"])
}

func TestCallback_MalformedBodyStillAcknowledged(t *testing.T) {
	cb := &mockCallbacks{}
	w := doRequest(handler.NewCallbackHandler(cb), "POST", "/kie-callback", `<<garbage>>`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataOf(t, w)["ok"])
	assert.Empty(t, cb.payloads)
}

func TestCallback_PollingModeIgnoresDeliveries(t *testing.T) {
	w := doRequest(handler.NewCallbackHandler(nil), "POST", "/kie-callback", `{"data":{"taskId":"t"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, dataOf(t, w)["matched"])
}

// ========================================
// POST /generate-image
// ========================================

func TestGenerateImage_Success(t *testing.T) {
	var gotPrompt, gotTopic string
	gen := &mockGenerator{GenerateFunc: func(_ context.Context, prompt, topic string) (*enhance.GeneratedImage, error) {
		gotPrompt, gotTopic = prompt, topic
		return &enhance.GeneratedImage{URL: "https://tempfile.kie.ai/sq.png", Prompt: "resolved prompt"}, nil
	}}
	w := doRequest(handler.NewGenerateImageHandler(gen), "POST", "/generate-image", `{"topic":"basements"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "https://tempfile.kie.ai/sq.png", data["url"])
	assert.Equal(t, "resolved prompt", data["prompt"])
	assert.Equal(t, "", gotPrompt)
	assert.Equal(t, "basements", gotTopic)
}

func TestGenerateImage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"missing prompt", enhance.ErrPromptRequired, http.StatusBadRequest, "INVALID_REQUEST"},
		{"timeout", fmt.Errorf("%w after 120 seconds", waiter.ErrTimeout), http.StatusGatewayTimeout, "IMAGE_TIMEOUT"},
		{"generation failed", fmt.Errorf("%w - nsfw", waiter.ErrGenerationFailed), http.StatusInternalServerError, "IMAGE_GENERATION_FAILED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &mockGenerator{GenerateFunc: func(context.Context, string, string) (*enhance.GeneratedImage, error) {
				return nil, tc.err
			}}
			w := doRequest(handler.NewGenerateImageHandler(gen), "POST", "/generate-image", `{"prompt":"p"}`)

			assert.Equal(t, tc.wantCode, w.Code)
			errObj := errorOf(t, w)
			assert.Equal(t, tc.wantErr, errObj["code"])
			assert.Equal(t, tc.err.Error(), errObj["message"])
		})
	}
}

func TestGenerateImage_RedactsSecrets(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(context.Context, string, string) (*enhance.GeneratedImage, error) {
		return nil, errors.New("submit failed: Bearer sk-live-123")
	}}
	w := doRequest(handler.NewGenerateImageHandler(gen), "POST", "/generate-image", `{"prompt":"p"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-live-123")
}

// ========================================
// GET /runs, GET /runs/{runID}
// ========================================

func runsRouter(runs handler.RunReader) http.Handler {
	r := chi.NewRouter()
	r.Get("/runs", handler.NewListRunsHandler(runs))
	r.Get("/runs/{runID}", handler.NewGetRunHandler(runs))
	return r
}

func TestGetRun(t *testing.T) {
	id := uuid.New()
	msg := "kie.ai: timeout after 120 seconds"
	runs := &mockRuns{runs: map[uuid.UUID]*models.Run{
		id: {ID: id, PostID: 7, Title: "Walls", Status: models.RunStatusFailed, ErrorMessage: &msg, CreatedAt: time.Now()},
	}}
	router := runsRouter(runs)

	w := doRequest(router, "GET", "/runs/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, id.String(), data["id"])
	assert.Equal(t, "failed", data["status"])
	assert.Equal(t, msg, data["error_message"])

	w = doRequest(router, "GET", "/runs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errorOf(t, w)["code"])

	w = doRequest(router, "GET", "/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun_StoreError(t *testing.T) {
	router := runsRouter(&mockRuns{err: errors.New("db down")})

	w := doRequest(router, "GET", "/runs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListRuns(t *testing.T) {
	runs := &mockRuns{runs: map[uuid.UUID]*models.Run{
		uuid.New(): {PostID: 7, Status: models.RunStatusCompleted},
		uuid.New(): {PostID: 8, Status: models.RunStatusPending},
	}}
	router := runsRouter(runs)

	w := doRequest(router, "GET", "/runs?post_id=7&limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["data"].([]any), 1)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(5), meta["limit"])
	assert.Equal(t, float64(1), meta["count"])
	assert.Equal(t, store.RunFilter{PostID: 7, Limit: 5}, runs.filters[0])
}

func TestListRuns_EmptyIsArray(t *testing.T) {
	router := runsRouter(&mockRuns{runs: map[uuid.UUID]*models.Run{}})

	w := doRequest(router, "GET", "/runs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
	assert.Equal(t, float64(store.DefaultListLimit), decode(t, w)["meta"].(map[string]any)["limit"])
}

func TestListRuns_BadQuery(t *testing.T) {
	router := runsRouter(&mockRuns{})

	for _, q := range []string{"post_id=abc", "post_id=-3", "limit=0", "limit=101", "limit=x"} {
		t.Run(q, func(t *testing.T) {
			w := doRequest(router, "GET", "/runs?"+q, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// ========================================
// GET /health
// ========================================

func TestHealth_OK(t *testing.T) {
	h := handler.NewHealthHandler(handler.HealthConfig{
		Service: "SFK Post Enhancer",
		Version: "1.1.0",
		Waiter:  stubWaiter{name: "callback", pending: 2},
	})

	w := doRequest(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "SFK Post Enhancer", data["service"])
	assert.Equal(t, "1.1.0", data["version"])
	assert.Equal(t, map[string]any{"mode": "callback", "pending": float64(2)}, data["waiter"])
	assert.NotContains(t, data, "checks")
}

// ========================================
// GET /ready
// ========================================

func TestReady_OK(t *testing.T) {
	h := handler.NewReadyHandler(map[string]handler.Check{
		"database": func(context.Context) error { return nil },
	})

	w := doRequest(h, "GET", "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, map[string]any{"database": "ok"}, data["checks"])
}

func TestReady_DegradedHidesErrorDetail(t *testing.T) {
	h := handler.NewReadyHandler(map[string]handler.Check{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("dial tcp 10.0.0.7:6379: connection refused") },
	})

	w := doRequest(h, "GET", "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
	assert.NotContains(t, w.Body.String(), "refused")
	data := dataOf(t, w)
	assert.Equal(t, false, data["ok"])
	assert.Equal(t, "degraded", data["status"])
	checks := data["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "degraded", checks["cache"])
}

func TestReady_NoChecks(t *testing.T) {
	w := doRequest(handler.NewReadyHandler(nil), "GET", "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{}, dataOf(t, w)["checks"])
}

var _ waiter.CallbackHandler = (*mockCallbacks)(nil)
