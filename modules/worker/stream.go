package worker

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"video-generation-gateway/modules/video"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 모든 origin 허용 (CORS 정책과 동일)
		return true
	},
}

// StreamJob - GET /jobs/{jobId}/ws
// Pushes a JobResponse whenever the job changes and closes once it is completed or failed.
func (h *Handler) StreamJob(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		video.WriteJSON(w, http.StatusServiceUnavailable, video.ErrorResponse{Error: msgAsyncDisabled})
		return
	}

	job, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [JobStream] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("📡 [JobStream] Streaming job %s", job.JobID)

	// 클라이언트 메시지는 무시하고 연결 종료만 감지
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var lastStatus string
	var lastUpdate time.Time
	for {
		if job.Status != lastStatus || !job.UpdatedAt.Equal(lastUpdate) {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
			if err := conn.WriteJSON(JobResponse{Success: true, Job: job}); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
			lastStatus, lastUpdate = job.Status, job.UpdatedAt

			if job.Terminal() {
				closeWith(conn, websocket.CloseNormalClosure, job.Status)
				return
			}
		}

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		next, err := h.store.Get(r.Context(), job.JobID)
		if errors.Is(err, ErrJobNotFound) {
			closeWith(conn, websocket.CloseNormalClosure, "job expired")
			return
		}
		if err != nil {
			log.Printf("⚠️  [JobStream] Failed to poll job %s: %v", job.JobID, err)
			continue
		}
		job = next
	}
}

// closeWith sends a close frame; failures are logged and returned.
func closeWith(conn *websocket.Conn, code int, text string) error {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		log.Printf("WebSocket close error: %v", err)
		return err
	}
	return nil
}
