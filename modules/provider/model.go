package provider

// GenerationRequest - POST /v1/video/generations body
type GenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	ResponseFormat string `json:"response_format"`
}
