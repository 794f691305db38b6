package worker

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"video-generation-gateway/modules/common/model"
	"video-generation-gateway/modules/video"
)

const (
	enqueueTimeout      = 10 * time.Second
	defaultPollInterval = 500 * time.Millisecond
	msgAsyncDisabled    = "Async jobs are not enabled"
	msgJobNotFound      = "Job not found"
)

// Handler - 비동기 Job API 핸들러
type Handler struct {
	store        *Store
	pollInterval time.Duration
}

// NewHandler - store may be nil, every route then answers 503.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:        store,
		pollInterval: defaultPollInterval,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/jobs", h.HandleEnqueue).Methods("POST")
	r.HandleFunc("/jobs/{jobId}", h.GetJob).Methods("GET")
	r.HandleFunc("/jobs/{jobId}/ws", h.StreamJob).Methods("GET")
	log.Println("✅ Job routes registered: /jobs, /jobs/{jobId}, /jobs/{jobId}/ws")
}

// HandleEnqueue - POST /jobs
func (h *Handler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		video.WriteJSON(w, http.StatusServiceUnavailable, video.ErrorResponse{Error: msgAsyncDisabled})
		return
	}

	req, err := video.DecodeGenerationRequest(r.Body)
	if err != nil {
		log.Printf("❌ [Enqueue] Invalid request: %v", err)
		video.WriteError(w, err)
		return
	}

	job := NewJob(uuid.NewString(), req)

	ctx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
	defer cancel()

	position, err := h.store.Enqueue(ctx, job)
	if err != nil {
		log.Printf("❌ [Enqueue] Redis enqueue failed: %v", err)
		video.WriteJSON(w, http.StatusInternalServerError, video.ErrorResponse{Error: err.Error()})
		return
	}

	log.Printf("✅ [Enqueue] Job %s enqueued successfully (position: %d)", job.JobID, position)

	video.WriteJSON(w, http.StatusAccepted, EnqueueResponse{
		Success:       true,
		JobID:         job.JobID,
		Status:        model.StatusPending,
		Queue:         QueueKey,
		QueuePosition: position,
	})
}

// GetJob - GET /jobs/{jobId}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		video.WriteJSON(w, http.StatusServiceUnavailable, video.ErrorResponse{Error: msgAsyncDisabled})
		return
	}

	job, ok := h.lookup(w, r)
	if !ok {
		return
	}

	video.WriteJSON(w, http.StatusOK, JobResponse{
		Success: true,
		Job:     job,
	})
}

// lookup loads the job named in the path, writing 404/500 itself on failure.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Job, bool) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.store.Get(r.Context(), jobID)
	if errors.Is(err, ErrJobNotFound) {
		video.WriteJSON(w, http.StatusNotFound, video.ErrorResponse{Error: msgJobNotFound})
		return nil, false
	}
	if err != nil {
		log.Printf("❌ [Jobs] Failed to load job %s: %v", jobID, err)
		video.WriteJSON(w, http.StatusInternalServerError, video.ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return job, true
}
