package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RoutineBuilder/internal/advisor"
	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/selection"
	"RoutineBuilder/internal/session"
	"RoutineBuilder/internal/storage"
)

type stubWorker struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (w *stubWorker) Complete(context.Context, []session.Message, int) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reply, w.err
}

type testEnv struct {
	server  *Server
	worker  *stubWorker
	advisor *advisor.Advisor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)

	cat := catalog.NewFromProducts([]catalog.Product{
		{ID: 1, Name: "Hydrating Cleanser", Brand: "CeraVe", Category: "cleanser", Image: "1.jpg"},
		{ID: 2, Name: "Foaming Cleanser", Brand: "La Roche-Posay", Category: "cleanser", Image: "2.jpg"},
		{ID: 3, Name: "Elvive Shampoo", Brand: "L'Oréal Paris", Category: "haircare", Image: "3.jpg"},
	})
	sel := selection.New(store, nil)
	w := &stubWorker{reply: "1. Cleanse"}
	adv := advisor.New(advisor.Config{WorkerURL: "http://worker"}, cat, sel, w, store, nil)
	t.Cleanup(func() {
		adv.Wait()
		store.Close()
	})

	return &testEnv{server: New(cat, sel, adv, nil), worker: w, advisor: adv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
		count float64
	}{
		{name: "all", query: "", count: 3},
		{name: "category", query: "?category=cleanser", count: 2},
		{name: "search", query: "?q=cerave", count: 1},
		{name: "intersection", query: "?category=haircare&q=cerave", count: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodGet, "/api/products"+tt.query, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.count, body["count"])
			assert.Len(t, body["products"], int(tt.count))
		})
	}
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodGet, "/api/categories", "")
	assert.Equal(t, []any{"cleanser", "haircare"}, body["categories"])
}

func TestSelectionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/selection/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["selected"])

	_, body = env.do(t, http.MethodPost, "/api/selection/3", "")
	assert.Len(t, body["items"], 2)

	_, body = env.do(t, http.MethodPost, "/api/selection/1", "")
	assert.Equal(t, false, body["selected"])
	assert.Len(t, body["items"], 1)

	_, body = env.do(t, http.MethodGet, "/api/selection", "")
	assert.Equal(t, float64(1), body["count"])

	rec, _ = env.do(t, http.MethodDelete, "/api/selection/3", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/selection/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.do(t, http.MethodPost, "/api/selection/2", "")
	rec, body = env.do(t, http.MethodDelete, "/api/selection", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
}

func TestSelectionErrors(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/selection/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/selection/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "not found")
}

func TestGenerateRoutine(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/routine", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, advisor.EmptySelectionReply, body["error"])

	env.do(t, http.MethodPost, "/api/selection/1", "")
	rec, body = env.do(t, http.MethodPost, "/api/routine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1. Cleanse", body["reply"])
	assert.Equal(t, "done", body["status"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	for _, m := range messages {
		assert.NotEqual(t, "system", m.(map[string]any)["role"])
	}
}

func TestChatWorkerFailure(t *testing.T) {
	env := newTestEnv(t)
	env.worker.err = errors.New("connection reset")

	rec, body := env.do(t, http.MethodPost, "/api/chat", `{"message":"Is retinol ok?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, advisor.ErrorReply, body["reply"])
	assert.Equal(t, "error", body["status"])
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatReplyFormattedToEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.worker.reply = "** **"

	rec, body := env.do(t, http.MethodPost, "/api/chat", `{"message":"anything else?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", body["status"])
	assert.Len(t, body["messages"], 2)
}

func TestChatHistoryAndReset(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)

	_, body := env.do(t, http.MethodGet, "/api/chat", "")
	assert.Len(t, body["messages"], 2)
	firstSession := body["session_id"]

	_, body = env.do(t, http.MethodDelete, "/api/chat", "")
	assert.Len(t, body["messages"], 0)
	assert.Equal(t, "idle", body["status"])
	assert.NotEqual(t, firstSession, body["session_id"])
}

func TestRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
