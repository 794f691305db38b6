package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SelectorKind - 모델 선택 방식
type SelectorKind int

const (
	SelectNone SelectorKind = iota
	SelectByIndex
	SelectByName
)

// ModelSelector - ByIndex(int) | ByName(string) | None
type ModelSelector struct {
	Kind  SelectorKind
	Index int
	Name  string
}

func NoSelector() ModelSelector { return ModelSelector{Kind: SelectNone} }

func ByIndex(i int) ModelSelector { return ModelSelector{Kind: SelectByIndex, Index: i} }

func ByName(name string) ModelSelector { return ModelSelector{Kind: SelectByName, Name: name} }

func (s ModelSelector) String() string {
	switch s.Kind {
	case SelectByIndex:
		return fmt.Sprintf("index:%d", s.Index)
	case SelectByName:
		return "name:" + s.Name
	default:
		return "default"
	}
}

// GenerationRequest - 비디오 생성 요청
type GenerationRequest struct {
	Prompt   string
	Selector ModelSelector
}

// Validate - prompt는 공백 제거 후 비어있으면 안 됨
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewError(ErrValidation, "prompt required", nil)
	}
	return nil
}

// GenerationResult - 생성 성공 결과
type GenerationResult struct {
	VideoURL  string `json:"video_url"`
	ModelUsed string `json:"model_used"`
	Prompt    string `json:"prompt"`
}

// MediaItem - 외부 생성기가 돌려준 결과 항목
type MediaItem struct {
	URL string
}

// GenerationRecord - 히스토리 테이블 구조
type GenerationRecord struct {
	ID           int64     `json:"id,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	Prompt       string    `json:"prompt"`
	ModelUsed    string    `json:"model_used,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	SourceSync  = "sync"
	SourceAsync = "async"
)

// Error kinds
var (
	ErrValidation        = errors.New("validation error")
	ErrNoModelsAvailable = errors.New("no models available")
	ErrUpstream          = errors.New("upstream error")
	ErrNoVideoGenerated  = errors.New("no video generated")
)

// GatewayError - Kind로 상태 코드를 구분, Message는 응답 본문에 그대로 노출
type GatewayError struct {
	Kind    error
	Message string
	Err     error
}

func NewError(kind error, message string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Err: err}
}

func (e *GatewayError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == e.Kind }

// IsClientError - 400으로 응답해야 하는 에러인지
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Message - 응답용 메시지 추출
func Message(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return err.Error()
}
