package summarizer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"review-digest/config"
)

const SYSTEM_INSTRUCTION = `
You are a summarization model for customer product reviews.
Summarize the reviews provided by the user into one coherent paragraph in plain English.
- Cover what buyers consistently praise and what they consistently complain about.
- Do not invent facts that are not present in the reviews.
- Do not address the reader, do not use bullet points, headings or markdown.
- Write at least %d words and stop at a natural sentence end.
`

// GeminiModel 은 Gemini API 기반 Model 구현이다.
// 빔 탐색과 길이 페널티는 API 에 대응하는 옵션이 없어 최대/최소 출력 길이만 반영한다.
type GeminiModel struct {
	client         *genai.Client
	name           string
	maxInputTokens int
}

func NewGeminiModel(ctx context.Context, cfg config.SummarizerConfig) (*GeminiModel, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &GeminiModel{
		client:         client,
		name:           cfg.ModelName,
		maxInputTokens: cfg.MaxInputTokens,
	}, nil
}

func (m *GeminiModel) Name() string { return m.name }

func (m *GeminiModel) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := m.client.Models.CountTokens(ctx, m.name, genai.Text(text), nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func (m *GeminiModel) Generate(ctx context.Context, text string, gen config.GenerationConfig) (*Generation, error) {
	text, err := m.truncate(ctx, text)
	if err != nil {
		return nil, err
	}

	// 토큰 대비 단어 수는 대략 3/4 이다.
	minWords := gen.MinNewTokens * 3 / 4
	result, err := m.client.Models.GenerateContent(
		ctx,
		m.name,
		genai.Text(text),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: fmt.Sprintf(SYSTEM_INSTRUCTION, minWords)}}},
			MaxOutputTokens:   int32(gen.MaxNewTokens),
			Temperature:       genai.Ptr[float32](0),
			ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
		},
	)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("empty response from %s", m.name)
	}

	out := &Generation{
		Text:         strings.TrimSpace(result.Text()),
		ModelVersion: result.ModelVersion,
	}
	if result.UsageMetadata != nil {
		out.TokenUsage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// truncate 는 입력을 max_input_tokens 이하로 줄인다. 단어 단위로 비율만큼 자른 뒤 다시 센다.
func (m *GeminiModel) truncate(ctx context.Context, text string) (string, error) {
	if m.maxInputTokens <= 0 {
		return text, nil
	}
	for range 3 {
		n, err := m.CountTokens(ctx, text)
		if err != nil {
			return "", err
		}
		if n <= m.maxInputTokens {
			return text, nil
		}
		text = truncateWords(text, float64(m.maxInputTokens)/float64(n))
	}
	return text, nil
}

func truncateWords(text string, ratio float64) string {
	words := strings.Fields(text)
	keep := int(float64(len(words)) * ratio)
	if keep < 1 {
		keep = 1
	}
	if keep >= len(words) {
		keep = len(words) - 1
	}
	if keep < 1 {
		return text
	}
	return strings.Join(words[:keep], " ")
}
