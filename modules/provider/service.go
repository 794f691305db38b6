package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"video-generation-gateway/modules/common/model"
)

const (
	modelsPath     = "/v1/models"
	generationPath = "/v1/video/generations"

	ResponseFormatURL = "url"
)

// Service talks to an OpenAI-compatible media generation API.
type Service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewService creates a provider client. A zero timeout means no client-side limit.
func NewService(baseURL, apiKey string, timeout time.Duration) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListModels returns the video model identifiers the provider exposes.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+modelsPath+"?type=video", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse models response: invalid JSON")
	}

	models, ok := parseModelList(gjson.ParseBytes(body))
	if !ok {
		return nil, fmt.Errorf("failed to parse models response: unexpected shape")
	}
	log.Printf("📋 [Provider] Fetched %d video models", len(models))
	return models, nil
}

// Generate asks the provider for a video and returns every result item it sent back.
// A successful call may legitimately return zero items.
func (s *Service) Generate(ctx context.Context, modelName, prompt, responseFormat string) ([]model.MediaItem, error) {
	reqBody, err := json.Marshal(GenerationRequest{
		Model:          modelName,
		Prompt:         prompt,
		ResponseFormat: responseFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+generationPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	log.Printf("🚀 [Provider] Requesting video: model=%s", modelName)

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse generation response: invalid JSON")
	}

	items := parseMediaItems(gjson.ParseBytes(body))
	log.Printf("📥 [Provider] Received %d result item(s)", len(items))
	return items, nil
}

func (s *Service) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func (s *Service) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider API error (status %d): %s", resp.StatusCode, errorText(body))
	}
	return body, nil
}

// parseModelList accepts ["a","b"], {"data":[{"id":"a"}]} or {"models":[...]}.
// ok is false for any other shape.
func parseModelList(root gjson.Result) (models []string, ok bool) {
	list := root
	if !list.IsArray() {
		switch {
		case root.Get("data").IsArray():
			list = root.Get("data")
		case root.Get("models").IsArray():
			list = root.Get("models")
		default:
			return nil, false
		}
	}

	ids := []string{}
	list.ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.Type == gjson.String:
			ids = append(ids, v.String())
		case v.Get("id").Exists():
			ids = append(ids, v.Get("id").String())
		case v.Get("name").Exists():
			ids = append(ids, v.Get("name").String())
		}
		return true
	})

	ids = lo.Map(ids, func(id string, _ int) string { return strings.TrimSpace(id) })
	return lo.Uniq(lo.Compact(ids)), true
}

// parseMediaItems accepts {"data":[{"url":...}]}, {"videos":[{"url":...}]} or a bare {"url":...}.
func parseMediaItems(root gjson.Result) []model.MediaItem {
	var list gjson.Result
	switch {
	case root.Get("data").IsArray():
		list = root.Get("data")
	case root.Get("videos").IsArray():
		list = root.Get("videos")
	case root.Get("data.task_result.videos").IsArray():
		list = root.Get("data.task_result.videos")
	case root.Get("url").Exists() || root.Get("video_url").Exists():
		return []model.MediaItem{{URL: firstString(root, "url", "video_url")}}
	default:
		return nil
	}

	items := make([]model.MediaItem, 0, len(list.Array()))
	list.ForEach(func(_, v gjson.Result) bool {
		items = append(items, model.MediaItem{URL: firstString(v, "url", "video_url")})
		return true
	})
	return items
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}

// errorText pulls a readable message out of an error body when there is one.
func errorText(body []byte) string {
	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		if msg := firstString(root, "error.message", "error", "message"); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}
