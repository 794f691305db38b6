package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"video-generation-gateway/modules/common/model"
)

type fakeGateway struct {
	mu      sync.Mutex
	result  *model.GenerationResult
	err     error
	gotReqs []model.GenerationRequest
	// cancel, when set, is called mid-generation to simulate shutdown
	cancel context.CancelFunc
}

func (f *fakeGateway) GenerateVideo(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotReqs = append(f.gotReqs, req)
	if f.cancel != nil {
		f.cancel()
		return nil, model.NewError(model.ErrUpstream, ctx.Err().Error(), ctx.Err())
	}
	return f.result, f.err
}

type fakeHistory struct {
	mu      sync.Mutex
	records []model.GenerationRecord
}

func (f *fakeHistory) RecordGeneration(ctx context.Context, rec model.GenerationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, limit int) ([]model.GenerationRecord, error) {
	return nil, nil
}

func TestPool_ProcessCompleted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	gw := &fakeGateway{result: &model.GenerationResult{VideoURL: "https://x/video.mp4", ModelUsed: "fast", Prompt: "p"}}
	history := &fakeHistory{}
	pool := NewPool(store, gw, history, 1)

	job := NewJob("job-1", model.GenerationRequest{Prompt: "p", Selector: model.ByName("fast")})
	if _, err := store.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool.Process(ctx, "job-1")

	got, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != model.StatusCompleted || got.VideoURL != "https://x/video.mp4" || got.ModelUsed != "fast" {
		t.Errorf("unexpected job %+v", got)
	}
	if len(gw.gotReqs) != 1 || gw.gotReqs[0].Selector != model.ByName("fast") {
		t.Errorf("unexpected gateway requests %+v", gw.gotReqs)
	}

	if len(history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.records))
	}
	rec := history.records[0]
	if rec.JobID != "job-1" || rec.Source != model.SourceAsync || rec.Status != model.StatusCompleted {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestPool_ProcessFailed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	gw := &fakeGateway{err: model.NewError(model.ErrNoVideoGenerated, "No video generated", nil)}
	history := &fakeHistory{}
	pool := NewPool(store, gw, history, 1)

	if _, err := store.Enqueue(ctx, NewJob("job-1", model.GenerationRequest{Prompt: "p"})); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool.Process(ctx, "job-1")

	got, _ := store.Get(ctx, "job-1")
	if got.Status != model.StatusFailed || got.Error != "No video generated" {
		t.Errorf("unexpected job %+v", got)
	}
	if len(history.records) != 1 || history.records[0].ErrorMessage != "No video generated" {
		t.Errorf("unexpected records %+v", history.records)
	}
}

func TestPool_ProcessRequeuesOnShutdown(t *testing.T) {
	store, mr := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &fakeGateway{cancel: cancel}
	history := &fakeHistory{}
	pool := NewPool(store, gw, history, 1)

	if _, err := store.Enqueue(context.Background(), NewJob("job-1", model.GenerationRequest{Prompt: "p"})); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	// the worker has already popped the id
	if id, err := store.Next(context.Background(), time.Second); err != nil || id != "job-1" {
		t.Fatalf("Next = %q, %v", id, err)
	}

	pool.Process(ctx, "job-1")

	got, err := store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != model.StatusPending || got.Error != "" {
		t.Errorf("expected job back to pending, got %+v", got)
	}
	if queued, _ := mr.List(QueueKey); len(queued) != 1 || queued[0] != "job-1" {
		t.Errorf("expected job requeued, queue=%v", queued)
	}
	if len(history.records) != 0 {
		t.Errorf("interrupted job should not be recorded, got %+v", history.records)
	}
}

func TestPool_ProcessSkipsUnknownAndFinished(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	gw := &fakeGateway{result: &model.GenerationResult{VideoURL: "u", ModelUsed: "m"}}
	pool := NewPool(store, gw, nil, 1)

	pool.Process(ctx, "missing")

	job := NewJob("done", model.GenerationRequest{Prompt: "p"})
	job.Status = model.StatusCompleted
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	pool.Process(ctx, "done")

	if len(gw.gotReqs) != 0 {
		t.Errorf("gateway should not be called, got %d call(s)", len(gw.gotReqs))
	}
}

func TestPool_Run(t *testing.T) {
	store, _ := newTestStore(t)

	gw := &fakeGateway{result: &model.GenerationResult{VideoURL: "u", ModelUsed: "m"}}
	pool := NewPool(store, gw, nil, 2)
	pool.popTimeout = time.Second

	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Enqueue(context.Background(), NewJob(id, model.GenerationRequest{Prompt: "p"})); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for _, id := range []string{"a", "b", "c"} {
		for {
			job, err := store.Get(context.Background(), id)
			if err == nil && job.Status == model.StatusCompleted {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("job %s not completed in time", id)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}

func TestNewPool_MinimumConcurrency(t *testing.T) {
	store, _ := newTestStore(t)
	if pool := NewPool(store, &fakeGateway{}, nil, 0); pool.concurrency != 1 {
		t.Errorf("expected concurrency 1, got %d", pool.concurrency)
	}
}
