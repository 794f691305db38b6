package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"video-generation-gateway/modules/common/model"
)

func newTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleEnqueue(t *testing.T) {
	store, mr := newTestStore(t)
	r := newTestRouter(NewHandler(store))

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"prompt":"a cat surfing","model_index":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp EnqueueResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.JobID == "" || resp.Status != model.StatusPending || resp.Queue != QueueKey || resp.QueuePosition != 1 {
		t.Errorf("unexpected response %+v", resp)
	}

	job, err := store.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not stored: %v", err)
	}
	if job.Prompt != "a cat surfing" || job.ModelIndex == nil || *job.ModelIndex != 1 {
		t.Errorf("unexpected job %+v", job)
	}
	if queued, _ := mr.List(QueueKey); len(queued) != 1 || queued[0] != resp.JobID {
		t.Errorf("unexpected queue %v", queued)
	}
}

func TestHandleEnqueue_Validation(t *testing.T) {
	store, mr := newTestStore(t)
	r := newTestRouter(NewHandler(store))

	tests := []struct {
		body      string
		wantError string
	}{
		{``, "Prompt is required"},
		{`{"model_index":0}`, "Prompt is required"},
		{`{"prompt":"  "}`, "Prompt cannot be empty"},
		{`{"prompt":`, "Invalid request body"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tt.body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected status 400, got %d", tt.body, w.Code)
		}
		var resp map[string]interface{}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["success"] != false || resp["error"] != tt.wantError {
			t.Errorf("%q: unexpected body %v", tt.body, resp)
		}
	}

	if mr.Exists(QueueKey) {
		t.Error("invalid requests must not be queued")
	}
}

func TestHandler_Disabled(t *testing.T) {
	r := newTestRouter(NewHandler(nil))

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/jobs"},
		{http.MethodGet, "/jobs/abc"},
		{http.MethodGet, "/jobs/abc/ws"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{"prompt":"p"}`))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected status 503, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestGetJob(t *testing.T) {
	store, _ := newTestStore(t)
	r := newTestRouter(NewHandler(store))

	job := NewJob("job-1", model.GenerationRequest{Prompt: "p"})
	job.Status = model.StatusCompleted
	job.VideoURL = "https://x/video.mp4"
	if err := store.Save(context.Background(), job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var resp JobResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Success || resp.Job.Status != model.StatusCompleted || resp.Job.VideoURL != "https://x/video.mp4" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/nope", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
		var resp map[string]interface{}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["error"] != "Job not found" {
			t.Errorf("unexpected body %v", resp)
		}
	})
}

func TestStreamJob(t *testing.T) {
	store, _ := newTestStore(t)
	h := NewHandler(store)
	h.pollInterval = 20 * time.Millisecond

	server := httptest.NewServer(newTestRouter(h))
	defer server.Close()

	ctx := context.Background()
	job := NewJob("job-1", model.GenerationRequest{Prompt: "p"})
	if _, err := store.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/jobs/job-1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first JobResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if first.Job.Status != model.StatusPending {
		t.Errorf("expected pending snapshot, got %s", first.Job.Status)
	}

	job.Status = model.StatusCompleted
	job.VideoURL = "https://x/video.mp4"
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var last JobResponse
	if err := conn.ReadJSON(&last); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if last.Job.Status != model.StatusCompleted || last.Job.VideoURL != "https://x/video.mp4" {
		t.Errorf("unexpected final snapshot %+v", last.Job)
	}

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}

func TestStreamJob_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	server := httptest.NewServer(newTestRouter(NewHandler(store)))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/jobs/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 response, got %+v", resp)
	}
}

func TestCloseWith_ReportsWriteFailure(t *testing.T) {
	result := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			result <- err
			return
		}
		conn.Close()
		result <- closeWith(conn, websocket.CloseNormalClosure, "done")
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case err := <-result:
		if err == nil {
			t.Error("expected error writing close frame on a closed connection")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not finish")
	}
}
