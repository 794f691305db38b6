package video

import "video-generation-gateway/modules/common/model"

// GenerateResponse - POST /generate 성공 응답
type GenerateResponse struct {
	Success   bool   `json:"success"`
	VideoURL  string `json:"video_url"`
	ModelUsed string `json:"model_used"`
	Prompt    string `json:"prompt,omitempty"`
}

// ModelsResponse - GET /models 성공 응답
type ModelsResponse struct {
	Success bool     `json:"success"`
	Models  []string `json:"models"`
}

// HistoryResponse - GET /history 성공 응답
type HistoryResponse struct {
	Success     bool                     `json:"success"`
	Generations []model.GenerationRecord `json:"generations"`
}

// ErrorResponse - 모든 실패 응답
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HomeResponse - GET / 배너
type HomeResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse - GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}
