package worker

import (
	"time"

	"video-generation-gateway/modules/common/model"
)

// Job - Redis에 저장되는 비동기 생성 작업
type Job struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Prompt     string    `json:"prompt"`
	Model      string    `json:"model,omitempty"`
	ModelIndex *int      `json:"model_index,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	ModelUsed  string    `json:"model_used,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewJob - pending 상태의 Job 생성
func NewJob(id string, req model.GenerationRequest) *Job {
	now := time.Now().UTC()
	job := &Job{
		JobID:     id,
		Status:    model.StatusPending,
		Prompt:    req.Prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch req.Selector.Kind {
	case model.SelectByName:
		job.Model = req.Selector.Name
	case model.SelectByIndex:
		index := req.Selector.Index
		job.ModelIndex = &index
	}
	return job
}

// Request rebuilds the generation request the job was submitted with.
func (j *Job) Request() model.GenerationRequest {
	req := model.GenerationRequest{Prompt: j.Prompt, Selector: model.NoSelector()}
	switch {
	case j.Model != "":
		req.Selector = model.ByName(j.Model)
	case j.ModelIndex != nil:
		req.Selector = model.ByIndex(*j.ModelIndex)
	}
	return req
}

// Terminal reports whether the job will not change any more.
func (j *Job) Terminal() bool {
	return j.Status == model.StatusCompleted || j.Status == model.StatusFailed
}

// EnqueueResponse - POST /jobs 응답
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Queue         string `json:"queue"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// JobResponse - GET /jobs/{jobId} 응답, websocket 스냅샷도 같은 형태
type JobResponse struct {
	Success bool `json:"success"`
	Job     *Job `json:"job"`
}
