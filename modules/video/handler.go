package video

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"video-generation-gateway/modules/common/fallback"
	"video-generation-gateway/modules/common/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	recordTimeout       = 10 * time.Second
)

// Generator is the gateway surface the handlers need.
type Generator interface {
	ListModels(ctx context.Context) ([]string, error)
	GenerateVideo(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
}

// HistoryStore persists and lists generation outcomes.
type HistoryStore interface {
	RecordGeneration(ctx context.Context, rec model.GenerationRecord) error
	ListRecent(ctx context.Context, limit int) ([]model.GenerationRecord, error)
}

// Handler serves the synchronous video API.
type Handler struct {
	gateway     Generator
	history     HistoryStore
	serviceName string
	endpoints   map[string]string
}

// NewHandler - history may be nil when Supabase is not configured.
func NewHandler(gateway Generator, history HistoryStore, serviceName string) *Handler {
	h := &Handler{
		gateway:     gateway,
		history:     history,
		serviceName: serviceName,
		endpoints: map[string]string{
			"/models":   "GET - List available models",
			"/generate": "POST - Generate video",
			"/health":   "GET - Health check",
		},
	}
	if history != nil {
		h.endpoints["/history"] = "GET - Recent generations"
	}
	return h
}

// AddEndpoint lists an extra route in the GET / banner.
func (h *Handler) AddEndpoint(path, description string) {
	h.endpoints[path] = description
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Home).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/models", h.ListModels).Methods("GET")
	r.HandleFunc("/generate", h.GenerateVideo).Methods("POST")
	r.HandleFunc("/history", h.History).Methods("GET")
	log.Println("✅ Video routes registered: /, /health, /models, /generate, /history")
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HomeResponse{
		Message:   "Video Generation API",
		Endpoints: h.endpoints,
	})
}

// Health handles GET /health. It never touches the provider.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
	})
}

// ListModels handles GET /models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.gateway.ListModels(r.Context())
	if err != nil {
		log.Printf("❌ Failed to list models: %v", err)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, ModelsResponse{
		Success: true,
		Models:  models,
	})
}

// GenerateVideo handles POST /generate.
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeGenerationRequest(r.Body)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.gateway.GenerateVideo(r.Context(), req)
	h.record(r.Context(), req.Prompt, result, err)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, GenerateResponse{
		Success:   true,
		VideoURL:  result.VideoURL,
		ModelUsed: result.ModelUsed,
		Prompt:    result.Prompt,
	})
}

// History handles GET /history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "History is not enabled"})
		return
	}

	limit := fallback.SafeIndex(r.URL.Query().Get("limit"), defaultHistoryLimit)
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to load history: %v", err)
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if records == nil {
		records = []model.GenerationRecord{}
	}

	WriteJSON(w, http.StatusOK, HistoryResponse{
		Success:     true,
		Generations: records,
	})
}

// record stores the outcome in the background; validation failures are not recorded.
func (h *Handler) record(ctx context.Context, prompt string, result *model.GenerationResult, err error) {
	if h.history == nil || model.IsClientError(err) {
		return
	}

	rec := NewRecord(prompt, result, err)
	rec.Source = model.SourceSync

	go func() {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := h.history.RecordGeneration(recordCtx, rec); err != nil {
			log.Printf("⚠️  Failed to record generation: %v", err)
		}
	}()
}

// NewRecord converts a gateway outcome into a history row.
func NewRecord(prompt string, result *model.GenerationResult, err error) model.GenerationRecord {
	rec := model.GenerationRecord{
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.Status = model.StatusFailed
		rec.ErrorMessage = model.Message(err)
		return rec
	}
	rec.Status = model.StatusCompleted
	rec.ModelUsed = result.ModelUsed
	rec.VideoURL = result.VideoURL
	return rec
}

// StatusCode maps gateway errors onto HTTP statuses.
func StatusCode(err error) int {
	if model.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteError renders {success:false, error} with the mapped status.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusCode(err), ErrorResponse{
		Success: false,
		Error:   model.Message(err),
	})
}

// WriteJSON - JSON 응답 작성
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
