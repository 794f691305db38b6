package video

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"video-generation-gateway/modules/common/fallback"
	"video-generation-gateway/modules/common/model"
)

const (
	msgInvalidBody    = "Invalid request body"
	msgPromptRequired = "Prompt is required"
	msgPromptEmpty    = "Prompt cannot be empty"
)

// DecodeGenerationRequest parses {prompt, model_index?, model?}.
// Every failure is a validation *model.GatewayError carrying the client-facing message.
func DecodeGenerationRequest(body io.Reader) (model.GenerationRequest, error) {
	var data map[string]interface{}
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return model.GenerationRequest{}, model.NewError(model.ErrValidation, msgPromptRequired, err)
		}
		return model.GenerationRequest{}, model.NewError(model.ErrValidation, msgInvalidBody, err)
	}

	prompt, ok := data["prompt"].(string)
	if !ok {
		return model.GenerationRequest{}, model.NewError(model.ErrValidation, msgPromptRequired, nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return model.GenerationRequest{}, model.NewError(model.ErrValidation, msgPromptEmpty, nil)
	}

	return model.GenerationRequest{
		Prompt:   prompt,
		Selector: fallback.Selector(data["model"], data["model_index"]),
	}, nil
}
