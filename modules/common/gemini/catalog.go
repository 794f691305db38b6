package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Veo 모델은 generateContent 대신 long-running predict를 지원
const videoGenerationMethod = "predictLongRunning"

// Catalog - Gemini API에서 비디오 모델 목록 조회
type Catalog struct {
	apiKey string
}

// NewCatalog - Catalog 생성
func NewCatalog(apiKey string) *Catalog {
	return &Catalog{apiKey: apiKey}
}

// ListModels - 비디오 생성 가능한 모델 ID 목록 반환 ("models/" 접두사 제거)
func (c *Catalog) ListModels(ctx context.Context) ([]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("no API key provided")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	var infos []modelInfo
	it := client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list Gemini models: %w", err)
		}
		infos = append(infos, modelInfo{name: m.Name, methods: m.SupportedGenerationMethods})
	}

	models := videoModels(infos)
	log.Printf("📋 [Gemini] %d of %d models support video generation", len(models), len(infos))
	return models, nil
}

type modelInfo struct {
	name    string
	methods []string
}

// videoModels - Veo 계열 또는 predictLongRunning 지원 모델만 추출
func videoModels(infos []modelInfo) []string {
	videos := lo.Filter(infos, func(m modelInfo, _ int) bool {
		return strings.Contains(strings.ToLower(m.name), "veo") ||
			lo.Contains(m.methods, videoGenerationMethod)
	})
	ids := lo.Map(videos, func(m modelInfo, _ int) string {
		return strings.TrimPrefix(m.name, "models/")
	})
	return lo.Uniq(lo.Compact(ids))
}
