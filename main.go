package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"video-generation-gateway/modules/common/config"
	"video-generation-gateway/modules/common/database"
	"video-generation-gateway/modules/common/gemini"
	redisClient "video-generation-gateway/modules/common/redis"
	"video-generation-gateway/modules/gateway"
	"video-generation-gateway/modules/provider"
	"video-generation-gateway/modules/video"
	"video-generation-gateway/modules/worker"
)

const shutdownTimeout = 30 * time.Second

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// newCatalog - CATALOG_SOURCE에 따라 모델 목록 출처 선택
func newCatalog(cfg *config.Config, svc *provider.Service) gateway.ModelCatalog {
	if cfg.CatalogSource == config.CatalogSourceGemini {
		log.Println("📚 Model catalog: Gemini API")
		return gemini.NewCatalog(cfg.GeminiAPIKey)
	}
	log.Println("📚 Model catalog: provider /v1/models")
	return svc
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Println("✅ Server stopped")
}

// run wires the service and blocks until a signal arrives or the server fails.
func run() error {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Provider + Gateway 초기화
	svc := provider.NewService(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	gw := gateway.New(newCatalog(cfg, svc), svc, gateway.Options{
		DefaultModel:  cfg.DefaultModel,
		MaxConcurrent: cfg.MaxConcurrentGenerations,
	})

	// 생성 히스토리 (Supabase 설정이 있을 때만)
	var history video.HistoryStore
	if cfg.HistoryEnabled() {
		dbClient, err := database.NewClient(cfg)
		if err != nil {
			log.Printf("⚠️  History disabled: %v", err)
		} else {
			history = dbClient
		}
	}

	videoHandler := video.NewHandler(gw, history, cfg.ServiceName)

	// 워커는 서버가 멈춘 뒤 종료
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	// 비동기 Job (Redis 큐)
	var jobStore *worker.Store
	var workers sync.WaitGroup

	if cfg.AsyncJobsEnabled {
		rdb, err := redisClient.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			workers.Wait()
			rdb.Close()
		}()

		jobStore = worker.NewStore(rdb, cfg.JobTTL)
		pool := worker.NewPool(jobStore, gw, history, cfg.WorkerConcurrency)

		// Redis Queue Worker 시작 (백그라운드)
		workers.Add(1)
		go func() {
			defer workers.Done()
			pool.Run(workerCtx)
		}()

		videoHandler.AddEndpoint("/jobs", "POST - Queue video generation")
		videoHandler.AddEndpoint("/jobs/{jobId}", "GET - Job status")
		videoHandler.AddEndpoint("/jobs/{jobId}/ws", "GET - Job status stream (WebSocket)")
	}

	// 라우터 설정
	r := mux.NewRouter()
	videoHandler.RegisterRoutes(r)
	worker.NewHandler(jobStore).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           enableCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 %s starting on port %s", cfg.ServiceName, cfg.Port)
	log.Printf("🎬 Generate endpoint: http://localhost:%s/generate", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	err = serve(ctx, srv)
	stopWorkers()
	return err
}

// serve runs srv until ctx is done or ListenAndServe fails, then shuts it down.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
