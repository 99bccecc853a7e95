package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"review-digest/config"
)

// ErrEmptyInput 는 요약할 청크가 없을 때 반환된다.
var ErrEmptyInput = errors.New("nothing to summarize")

// Model 은 요약 모델 백엔드다. 애플리케이션 시작 시 한 번 만들고 모든 요청이 읽기 전용으로 공유한다.
type Model interface {
	Name() string
	CountTokens(ctx context.Context, text string) (int, error)
	// Generate 는 입력이 모델 최대 입력 길이를 넘으면 백엔드가 직접 잘라낸다.
	Generate(ctx context.Context, text string, gen config.GenerationConfig) (*Generation, error)
}

type Generation struct {
	Text         string     `json:"text"`
	ModelVersion string     `json:"model_version"`
	TokenUsage   TokenUsage `json:"token_usage"`
}

type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// NewModel 은 summarizer.provider 설정에 맞는 백엔드를 만든다.
func NewModel(ctx context.Context, cfg config.SummarizerConfig) (Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderGemini:
		return NewGeminiModel(ctx, cfg)
	case config.ProviderHuggingFace:
		return NewHuggingFaceModel(cfg)
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %s", cfg.Provider)
	}
}

type Phase string

const (
	PhaseMap    Phase = "map"
	PhaseReduce Phase = "reduce"
)

// CallLog 는 모델 호출 한 번의 기록이다. 실패한 호출도 Err 를 채워 남긴다.
type CallLog struct {
	Phase        Phase      `json:"phase"`
	ChunkIndex   int        `json:"chunk_index"`
	ModelName    string     `json:"model_name"`
	ModelVersion string     `json:"model_version"`
	Response     string     `json:"response"`
	TokenUsage   TokenUsage `json:"token_usage"`
	LatencyMs    int64      `json:"latency_ms"`
	Err          error      `json:"-"`
	RequestedAt  time.Time  `json:"requested_at"`
	CompletedAt  time.Time  `json:"completed_at"`
}

type Recorder interface {
	Record(ctx context.Context, log CallLog)
}

// Limiter 는 모델 호출 직전에 호출 가능 여부를 확인한다.
type Limiter interface {
	Wait(ctx context.Context) error
}
