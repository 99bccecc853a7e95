package summarizer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-digest/config"
	"review-digest/models"
	"review-digest/quota"
	"review-digest/summarizer"
)

// scriptedModel 은 map 호출마다 outputs 를 순서대로 돌려주고 reduce 호출에는 reduceOutput 을 돌려준다.
type scriptedModel struct {
	outputs      []string
	reduceOutput string
	reduceTokens int
	failAt       int

	calls []config.GenerationConfig
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (m *scriptedModel) Generate(_ context.Context, _ string, gen config.GenerationConfig) (*summarizer.Generation, error) {
	m.calls = append(m.calls, gen)
	n := len(m.calls)
	if m.failAt > 0 && n == m.failAt {
		return nil, errors.New("model unavailable")
	}
	if gen.MaxNewTokens == m.reduceTokens {
		return &summarizer.Generation{Text: m.reduceOutput}, nil
	}
	return &summarizer.Generation{Text: m.outputs[n-1]}, nil
}

type memoryRecorder struct {
	mu   sync.Mutex
	logs []summarizer.CallLog
}

func (r *memoryRecorder) Record(_ context.Context, log summarizer.CallLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
}

func repeatWord(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func chunks(n int) []models.Chunk {
	out := make([]models.Chunk, n)
	for i := range out {
		out[i] = models.Chunk{Text: "chunk", TokenCount: 1, CommentCount: 1}
	}
	return out
}

func newHierarchical(m summarizer.Model, opts ...summarizer.Option) *summarizer.Hierarchical {
	return summarizer.NewHierarchical(m, config.Default().Summarizer, opts...)
}

func TestSummarizeWithoutReduce(t *testing.T) {
	m := &scriptedModel{
		outputs:      []string{repeatWord("alpha", 100), repeatWord("beta", 100), repeatWord("gamma", 50)},
		reduceTokens: config.Default().Summarizer.Reduce.MaxNewTokens,
	}

	summary, err := newHierarchical(m).Summarize(context.Background(), chunks(3))
	require.NoError(t, err)

	assert.Len(t, m.calls, 3, "no reduce call for 250 words")
	assert.Equal(t, strings.Join(m.outputs, " "), summary.Text)
	assert.Equal(t, 250, summary.WordCount)
	assert.Equal(t, 3, summary.SourceChunkCount)
	assert.False(t, summary.Reduced)
}

func TestSummarizeReducesExactlyOnce(t *testing.T) {
	def := config.Default().Summarizer
	m := &scriptedModel{
		outputs:      []string{repeatWord("alpha", 150), repeatWord("beta", 101)},
		reduceOutput: repeatWord("still long", 400),
		reduceTokens: def.Reduce.MaxNewTokens,
	}

	summary, err := newHierarchical(m).Summarize(context.Background(), chunks(2))
	require.NoError(t, err)

	require.Len(t, m.calls, 3)
	assert.Equal(t, def.Map, m.calls[0])
	assert.Equal(t, def.Map, m.calls[1])
	assert.Equal(t, def.Reduce, m.calls[2])
	assert.Equal(t, m.reduceOutput, summary.Text)
	assert.Equal(t, 800, summary.WordCount)
	assert.Equal(t, 2, summary.SourceChunkCount)
	assert.True(t, summary.Reduced)
}

func TestSummarizeEmptyInput(t *testing.T) {
	_, err := newHierarchical(&scriptedModel{}).Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, summarizer.ErrEmptyInput)
}

func TestSummarizeModelFailure(t *testing.T) {
	m := &scriptedModel{outputs: []string{"a", "b", "c"}, failAt: 2}
	rec := &memoryRecorder{}

	_, err := newHierarchical(m, summarizer.WithRecorder(rec)).Summarize(context.Background(), chunks(3))
	assert.Error(t, err)
	assert.Len(t, m.calls, 2)

	require.Len(t, rec.logs, 2)
	assert.NoError(t, rec.logs[0].Err)
	assert.Error(t, rec.logs[1].Err)
	assert.Equal(t, 1, rec.logs[1].ChunkIndex)
	assert.Equal(t, summarizer.PhaseMap, rec.logs[1].Phase)
}

func TestSummarizeRejectsEmptyOutput(t *testing.T) {
	m := &scriptedModel{outputs: []string{"  "}}
	_, err := newHierarchical(m).Summarize(context.Background(), chunks(1))
	assert.Error(t, err)
}

func TestSummarizeHonoursQuota(t *testing.T) {
	m := &scriptedModel{outputs: []string{"a", "b"}}
	limiter := quota.NewLimiter(config.SummaryQuotaConfig{RequestsPerDay: 1})

	_, err := newHierarchical(m, summarizer.WithLimiter(limiter)).Summarize(context.Background(), chunks(2))
	assert.ErrorIs(t, err, quota.ErrDailyQuotaExceeded)
	assert.Len(t, m.calls, 1)
}

func TestSummarizeRecordsPhases(t *testing.T) {
	def := config.Default().Summarizer
	m := &scriptedModel{
		outputs:      []string{repeatWord("alpha", 300)},
		reduceOutput: "short final summary",
		reduceTokens: def.Reduce.MaxNewTokens,
	}
	rec := &memoryRecorder{}

	_, err := newHierarchical(m, summarizer.WithRecorder(rec)).Summarize(context.Background(), chunks(1))
	require.NoError(t, err)

	require.Len(t, rec.logs, 2)
	assert.Equal(t, summarizer.PhaseMap, rec.logs[0].Phase)
	assert.Equal(t, summarizer.PhaseReduce, rec.logs[1].Phase)
	assert.Equal(t, "short final summary", rec.logs[1].Response)
	assert.Equal(t, "scripted", rec.logs[1].ModelName)
}
