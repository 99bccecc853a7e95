// Package summarizer collapses packed review chunks into one summary with a bounded map/reduce.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"review-digest/config"
	"review-digest/models"
)

// Hierarchical 은 청크별 요약(map) 후 필요할 때 한 번만 다시 요약(reduce)한다.
// 요청마다 새로 만들어도 되는 가벼운 값이며 Model 만 요청 간에 공유된다.
type Hierarchical struct {
	model    Model
	cfg      config.SummarizerConfig
	limiter  Limiter
	recorder Recorder
}

type Option func(*Hierarchical)

func WithLimiter(l Limiter) Option {
	return func(h *Hierarchical) { h.limiter = l }
}

func WithRecorder(r Recorder) Option {
	return func(h *Hierarchical) { h.recorder = r }
}

func NewHierarchical(model Model, cfg config.SummarizerConfig, opts ...Option) *Hierarchical {
	h := &Hierarchical{model: model, cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Summarize 는 청크 수와 관계없이 정확히 하나의 Summary 를 만든다.
// 청크별 요약을 공백 하나로 이어 붙인 결과가 reduce_word_threshold 단어를 넘을 때만 reduce 를 한 번 수행하며,
// reduce 결과가 여전히 길어도 더 반복하지 않는다.
func (h *Hierarchical) Summarize(ctx context.Context, chunks []models.Chunk) (*models.Summary, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}

	partials := make([]string, len(chunks))
	for i, chunk := range chunks {
		text, err := h.generate(ctx, PhaseMap, i, chunk.Text, h.cfg.Map)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials[i] = text
		config.Logger.Debugf("chunk %d/%d summarized (%d tokens in)", i+1, len(chunks), chunk.TokenCount)
	}

	combined := strings.Join(partials, " ")
	summary := &models.Summary{
		Text:             combined,
		SourceChunkCount: len(chunks),
		WordCount:        len(strings.Fields(combined)),
	}
	if summary.WordCount <= h.cfg.ReduceWordThreshold {
		return summary, nil
	}

	config.Logger.Infof("combined summary has %d words, running reduce pass", summary.WordCount)
	reduced, err := h.generate(ctx, PhaseReduce, 0, combined, h.cfg.Reduce)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce %d chunk summaries: %w", len(chunks), err)
	}
	summary.Text = reduced
	summary.WordCount = len(strings.Fields(reduced))
	summary.Reduced = true
	return summary, nil
}

func (h *Hierarchical) generate(ctx context.Context, phase Phase, index int, text string, gen config.GenerationConfig) (string, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	callCtx := ctx
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	startTime := time.Now()
	out, err := h.model.Generate(callCtx, text, gen)
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = fmt.Errorf("model %s returned an empty summary", h.model.Name())
	}

	if h.recorder != nil {
		log := CallLog{
			Phase:       phase,
			ChunkIndex:  index,
			ModelName:   h.model.Name(),
			LatencyMs:   time.Since(startTime).Milliseconds(),
			Err:         err,
			RequestedAt: startTime,
			CompletedAt: time.Now(),
		}
		if out != nil {
			log.ModelVersion = out.ModelVersion
			log.Response = out.Text
			log.TokenUsage = out.TokenUsage
		}
		h.recorder.Record(ctx, log)
	}

	if err != nil {
		return "", err
	}
	return out.Text, nil
}
