package fallback

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"video-generation-gateway/modules/common/model"
)

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeIndex converts common number shapes into a non-negative index with a fallback.
// Fractional, negative and non-numeric values use the fallback.
func SafeIndex(value interface{}, fallback int) int {
	switch v := value.(type) {
	case float64:
		if v >= 0 && v == math.Trunc(v) && v <= math.MaxInt32 {
			return int(v)
		}
	case float32:
		return SafeIndex(float64(v), fallback)
	case int:
		if v >= 0 {
			return v
		}
	case int64:
		if v >= 0 && v <= math.MaxInt32 {
			return int(v)
		}
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil && n >= 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// Selector builds a ModelSelector from loosely typed request fields.
// A non-empty model name wins over model_index.
func Selector(name, index interface{}) model.ModelSelector {
	if n := SafeString(name, ""); n != "" {
		return model.ByName(n)
	}
	if index != nil {
		return model.ByIndex(SafeIndex(index, 0))
	}
	return model.NoSelector()
}
