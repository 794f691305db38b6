package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"video-generation-gateway/modules/common/model"
	"video-generation-gateway/modules/video"
)

const (
	defaultPopTimeout = 5 * time.Second
	retryDelay        = 5 * time.Second
	saveTimeout       = 10 * time.Second
)

// Generator is the gateway call a worker runs for each job.
type Generator interface {
	GenerateVideo(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
}

// Pool - jobs:video 큐를 감시하는 워커 묶음
type Pool struct {
	store       *Store
	gateway     Generator
	history     video.HistoryStore
	concurrency int
	popTimeout  time.Duration
}

// NewPool - history may be nil.
func NewPool(store *Store, gateway Generator, history video.HistoryStore, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		store:       store,
		gateway:     gateway,
		history:     history,
		concurrency: concurrency,
		popTimeout:  defaultPopTimeout,
	}
}

// Run starts the workers and blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context) {
	log.Printf("🔄 [Worker] Starting %d video worker(s)...", p.concurrency)
	log.Printf("👀 [Worker] Watching queue: %s", QueueKey)

	var wg sync.WaitGroup
	for i := 1; i <= p.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()

	log.Println("🛑 [Worker] All workers stopped")
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	for ctx.Err() == nil {
		jobID, err := p.store.Next(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ [Worker %d] Redis BRPOP error: %v", workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		if jobID == "" {
			continue
		}

		log.Printf("🎯 [Worker %d] Received video job: %s", workerID, jobID)
		p.Process(ctx, jobID)
	}
}

// Process runs one job: processing -> generate -> completed | failed, then records history.
// A job cut short by ctx cancellation goes back on the queue as pending.
func (p *Pool) Process(ctx context.Context, jobID string) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		log.Printf("❌ [Worker] Failed to fetch job %s: %v", jobID, err)
		return
	}
	if job.Status != model.StatusPending {
		log.Printf("⚠️  [Worker] Job %s already %s, skipping", jobID, job.Status)
		return
	}

	job.Status = model.StatusProcessing
	if err := p.store.Save(ctx, job); err != nil {
		log.Printf("⚠️  [Worker] Failed to update job status: %v", err)
	}

	result, genErr := p.gateway.GenerateVideo(ctx, job.Request())

	// 종료 중이어도 최종 상태는 남긴다
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if genErr != nil && ctx.Err() != nil {
		// 종료로 중단된 작업은 실패 대신 큐에 되돌린다
		if err := p.store.Requeue(saveCtx, job); err != nil {
			log.Printf("❌ [Worker] Failed to requeue interrupted job %s: %v", jobID, err)
			return
		}
		log.Printf("↩️  [Worker] Job %s interrupted by shutdown, requeued", jobID)
		return
	}

	if genErr != nil {
		job.Status = model.StatusFailed
		job.Error = model.Message(genErr)
		log.Printf("❌ [Worker] Video job %s failed: %s", jobID, job.Error)
	} else {
		job.Status = model.StatusCompleted
		job.VideoURL = result.VideoURL
		job.ModelUsed = result.ModelUsed
		log.Printf("✅ [Worker] Video job %s completed with %s", jobID, result.ModelUsed)
	}

	if err := p.store.Save(saveCtx, job); err != nil {
		log.Printf("⚠️  [Worker] Failed to store result of job %s: %v", jobID, err)
	}

	if p.history != nil {
		rec := video.NewRecord(job.Prompt, result, genErr)
		rec.JobID = jobID
		rec.Source = model.SourceAsync
		if err := p.history.RecordGeneration(saveCtx, rec); err != nil {
			log.Printf("⚠️  [Worker] Failed to record generation: %v", err)
		}
	}
}
