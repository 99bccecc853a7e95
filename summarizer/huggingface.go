package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"review-digest/config"
)

// HuggingFaceModel 은 Hugging Face 추론 엔드포인트에 배포된 BART 계열 요약 모델을 호출한다.
// 토큰 수는 같은 모델의 tokenizer.json 으로 로컬에서 세고, 최대 입력 길이 초과분은 엔드포인트가 잘라낸다.
type HuggingFaceModel struct {
	name     string
	endpoint string
	token    string
	client   *http.Client

	mu        sync.Mutex
	tokenizer *tokenizer.Tokenizer
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxNewTokens  int     `json:"max_new_tokens"`
	MinLength     int     `json:"min_length"`
	NumBeams      int     `json:"num_beams"`
	LengthPenalty float64 `json:"length_penalty"`
	EarlyStopping bool    `json:"early_stopping"`
	EOSTokenID    int     `json:"eos_token_id"`
	Truncation    string  `json:"truncation"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

type hfError struct {
	Error string `json:"error"`
}

func NewHuggingFaceModel(cfg config.SummarizerConfig) (*HuggingFaceModel, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("summarizer.endpoint is required for %s", config.ProviderHuggingFace)
	}

	m := &HuggingFaceModel{
		name:     cfg.ModelName,
		endpoint: cfg.Endpoint,
		token:    os.Getenv("HF_API_TOKEN"),
		client:   &http.Client{},
	}
	if cfg.TokenizerFile != "" {
		tk, err := pretrained.FromFile(cfg.TokenizerFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer %s: %w", cfg.TokenizerFile, err)
		}
		m.tokenizer = tk
	}
	return m, nil
}

func (m *HuggingFaceModel) Name() string { return m.name }

func (m *HuggingFaceModel) CountTokens(_ context.Context, text string) (int, error) {
	if m.tokenizer == nil {
		return 0, fmt.Errorf("no tokenizer loaded for %s", m.name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	enc, err := m.tokenizer.EncodeSingle(text, false)
	if err != nil {
		return 0, err
	}
	return len(enc.Ids), nil
}

func (m *HuggingFaceModel) Generate(ctx context.Context, text string, gen config.GenerationConfig) (*Generation, error) {
	payload := hfRequest{
		Inputs: text,
		Parameters: hfParameters{
			MaxNewTokens:  gen.MaxNewTokens,
			MinLength:     gen.MinNewTokens,
			NumBeams:      gen.NumBeams,
			LengthPenalty: gen.LengthPenalty,
			EarlyStopping: gen.EarlyStopping == nil || *gen.EarlyStopping,
			EOSTokenID:    gen.EOSTokenID,
			Truncation:    "only_first",
		},
		Options: hfOptions{WaitForModel: true},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr hfError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s returned %d: %s", m.name, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%s returned %d", m.name, resp.StatusCode)
	}

	var summaries []hfSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", m.name, err)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("empty response from %s", m.name)
	}

	out := &Generation{Text: strings.TrimSpace(summaries[0].SummaryText), ModelVersion: m.name}
	out.TokenUsage = m.tokenUsage(ctx, text, out.Text)
	return out, nil
}

// tokenUsage 는 엔드포인트가 사용량을 알려주지 않으므로 로컬 토크나이저로 센다.
// 셀 수 없으면 요약 자체는 성공으로 두고 사용량만 0 으로 남긴다.
func (m *HuggingFaceModel) tokenUsage(ctx context.Context, input, output string) TokenUsage {
	in, err := m.CountTokens(ctx, input)
	if err != nil {
		config.Logger.Debugf("failed to count input tokens for %s: %v", m.name, err)
		return TokenUsage{}
	}
	outTokens, err := m.CountTokens(ctx, output)
	if err != nil {
		config.Logger.Debugf("failed to count output tokens for %s: %v", m.name, err)
		return TokenUsage{InputTokens: int64(in), TotalTokens: int64(in)}
	}
	return TokenUsage{InputTokens: int64(in), OutputTokens: int64(outTokens), TotalTokens: int64(in + outTokens)}
}
