package gateway

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"video-generation-gateway/modules/common/model"
	"video-generation-gateway/modules/provider"
)

const (
	msgNoModels        = "No video models available"
	msgNoVideo         = "No video generated"
	msgUnusableCatalog = "model catalog returned no result"
)

// ModelCatalog lists the video models the provider exposes.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]string, error)
}

// MediaGenerator produces videos for a (model, prompt, response format) triple.
type MediaGenerator interface {
	Generate(ctx context.Context, modelName, prompt, responseFormat string) ([]model.MediaItem, error)
}

// Options tunes model resolution and generation concurrency.
type Options struct {
	// DefaultModel is used when the request names no model and it is in the catalog.
	DefaultModel string
	// MaxConcurrent bounds in-flight generator calls. Values < 1 mean 1.
	MaxConcurrent int
}

// Gateway resolves a model for each request, calls the generator and shapes the result.
// The catalog is fetched once per Gateway and kept until the process exits.
type Gateway struct {
	catalog      ModelCatalog
	generator    MediaGenerator
	defaultModel string
	sem          chan struct{}

	mu     sync.RWMutex
	models []string
	loaded bool
	fetch  singleflight.Group
}

// New creates a Gateway.
func New(catalog ModelCatalog, generator MediaGenerator, opts Options) *Gateway {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Gateway{
		catalog:      catalog,
		generator:    generator,
		defaultModel: opts.DefaultModel,
		sem:          make(chan struct{}, opts.MaxConcurrent),
	}
}

// ListModels returns the memoized catalog, fetching it on first use.
// Concurrent first callers share one fetch; a failed fetch is not cached.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	if models, ok := g.cached(); ok {
		return models, nil
	}

	v, err, _ := g.fetch.Do("catalog", func() (interface{}, error) {
		if models, ok := g.cached(); ok {
			return models, nil
		}

		models, err := g.catalog.ListModels(ctx)
		if err != nil {
			log.Printf("❌ [Gateway] Model catalog fetch failed: %v", err)
			return nil, model.NewError(model.ErrUpstream, err.Error(), err)
		}
		if models == nil {
			return nil, model.NewError(model.ErrUpstream, msgUnusableCatalog, nil)
		}

		g.mu.Lock()
		g.models = slices.Clone(models)
		g.loaded = true
		g.mu.Unlock()

		log.Printf("✅ [Gateway] Model catalog cached (%d models)", len(models))
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]string)), nil
}

func (g *Gateway) cached() ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.loaded {
		return nil, false
	}
	return slices.Clone(g.models), true
}

// GenerateVideo runs validate -> resolve -> invoke -> shape for one request.
// Every failure comes back as a *model.GatewayError.
func (g *Gateway) GenerateVideo(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	models, err := g.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, model.NewError(model.ErrNoModelsAvailable, msgNoModels, nil)
	}

	modelName := ResolveModel(models, req.Selector, g.defaultModel)
	log.Printf("🎬 [Gateway] Generating video with model: %s (selector: %s), prompt: %s", modelName, req.Selector, req.Prompt)

	items, err := g.invoke(ctx, modelName, req.Prompt)
	if err != nil {
		log.Printf("❌ [Gateway] Error generating video: %v", err)
		return nil, model.NewError(model.ErrUpstream, err.Error(), err)
	}

	item, ok := lo.Find(items, func(it model.MediaItem) bool { return it.URL != "" })
	if !ok {
		log.Printf("⚠️  [Gateway] Generator returned %d item(s) without a URL", len(items))
		return nil, model.NewError(model.ErrNoVideoGenerated, msgNoVideo, nil)
	}

	log.Printf("✅ [Gateway] Video generated with %s", modelName)
	return &model.GenerationResult{
		VideoURL:  item.URL,
		ModelUsed: modelName,
		Prompt:    req.Prompt,
	}, nil
}

// invoke calls the generator inside the concurrency bound and turns panics into errors.
func (g *Gateway) invoke(ctx context.Context, modelName, prompt string) (items []model.MediaItem, err error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.sem }()

	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("generator panic: %v", r)
		}
	}()

	return g.generator.Generate(ctx, modelName, prompt, provider.ResponseFormatURL)
}

// ResolveModel picks the model for a selector. Out-of-range indexes and unknown names
// fall back to models[0]. Only a missing selector uses defaultModel, when it is listed.
// models must be non-empty.
func ResolveModel(models []string, sel model.ModelSelector, defaultModel string) string {
	switch sel.Kind {
	case model.SelectByIndex:
		if sel.Index >= 0 && sel.Index < len(models) {
			return models[sel.Index]
		}
		return models[0]
	case model.SelectByName:
		if lo.Contains(models, sel.Name) {
			return sel.Name
		}
		return models[0]
	}

	if defaultModel != "" && lo.Contains(models, defaultModel) {
		return defaultModel
	}
	return models[0]
}
