package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"review-digest/admission"
	"review-digest/collector"
	"review-digest/config"
	"review-digest/eventbus"
	"review-digest/events"
	"review-digest/models"
	"review-digest/pipeline"
	"review-digest/summarizer"
)

// staticPage 는 리뷰 한 페이지만 있는 문서 소스다.
type staticPage struct {
	sel        config.SelectorConfig
	blocks     []string
	failSearch bool
}

func (p *staticPage) Navigate(context.Context, string) error { return nil }

func (p *staticPage) Click(_ context.Context, selector string, _ time.Duration) error {
	if selector == p.sel.Popup || selector == p.sel.NextPage {
		return collector.ErrTimeout
	}
	return nil
}

func (p *staticPage) TypeAndSubmit(context.Context, string, string, time.Duration) error {
	if p.failSearch {
		return collector.ErrTimeout
	}
	return nil
}

func (p *staticPage) Attribute(context.Context, string, string, time.Duration) (string, bool, error) {
	return "/some-phone/p/itm1", true, nil
}

func (p *staticPage) Scroll(context.Context, collector.ScrollPosition) error { return nil }

func (p *staticPage) ReadAll(_ context.Context, selector string, _ time.Duration) ([]string, error) {
	switch selector {
	case p.sel.ReviewBlock:
		return p.blocks, nil
	case p.sel.AggregateBlock:
		return []string{`<div><div class="ipqd2A">4.1</div><span>2,000 Ratings &amp;</span></div>`}, nil
	}
	return nil, collector.ErrTimeout
}

func (p *staticPage) Close() error { return nil }

type englishDetector struct{}

func (englishDetector) Detect(text string) (string, error) {
	if len(strings.Fields(text)) < 3 {
		return "", admission.ErrUndetectable
	}
	return "en", nil
}

type echoModel struct {
	fail  bool
	calls int
}

func (m *echoModel) Name() string { return "echo" }

func (m *echoModel) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (m *echoModel) Generate(context.Context, string, config.GenerationConfig) (*summarizer.Generation, error) {
	m.calls++
	if m.fail {
		return nil, errors.New("model offline")
	}
	return &summarizer.Generation{Text: "buyers like the battery and the camera"}, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ eventbus.Topic, evt eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) Close() {}

func (b *recordingBus) types() []string {
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type memoryLogs struct {
	logs []models.AILog
}

func (m *memoryLogs) Insert(_ context.Context, log models.AILog) (*mongo.InsertOneResult, error) {
	m.logs = append(m.logs, log)
	return &mongo.InsertOneResult{}, nil
}

func block(comment string) string {
	return fmt.Sprintf(`<div><div class="XQDdHH Ga3i8K">5</div><p class="z9E0IG">Great</p><div class="ZmyHeo">%s</div></div>`, comment)
}

func testConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Collector.PageLoadDelay = 0
	cfg.Collector.PageSettleDelay = 0
	cfg.Chunking.ShuffleSeed = 1
	return cfg
}

func newApp(t *testing.T, page *staticPage, model summarizer.Model, opts ...pipeline.Option) *pipeline.App {
	t.Helper()
	cfg := testConfig()
	page.sel = cfg.Collector.Selectors

	opts = append([]pipeline.Option{
		pipeline.WithModel(model),
		pipeline.WithDetector(englishDetector{}),
		pipeline.WithOpener(func(context.Context) (collector.Page, error) { return page, nil }),
	}, opts...)
	app, err := pipeline.NewApp(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return app
}

const longReview = "the battery lasts two full days and the camera takes sharp photos even in low light conditions"

func TestRunAnalysis(t *testing.T) {
	page := &staticPage{blocks: []string{block(longReview), block("ok"), block(longReview + " again")}}
	bus := &recordingBus{}
	logs := &memoryLogs{}
	model := &echoModel{}

	res, err := newApp(t, page, model, pipeline.WithEventBus(bus), pipeline.WithCallLogStore(logs)).
		RunAnalysis(context.Background(), "  some phone ")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "some phone", res.Query)
	assert.Equal(t, 3, res.Corpus.InitialReviewCount)
	assert.Equal(t, 2, res.Corpus.FinalReviewCount)
	require.NotNil(t, res.Corpus.OverallRating)
	assert.InDelta(t, 4.1, *res.Corpus.OverallRating, 1e-9)
	assert.Equal(t, 2000, res.Corpus.TotalRatingsCount)

	assert.Equal(t, 1, res.Summary.SourceChunkCount)
	assert.Equal(t, "buyers like the battery and the camera", res.Summary.Text)
	assert.False(t, res.Summary.Reduced)
	assert.Equal(t, 1, model.calls)

	assert.Equal(t, []string{string(events.AnalysisRequested), string(events.AnalysisCompleted)}, bus.types())
	require.Len(t, logs.logs, 1)
	assert.Equal(t, res.ID, logs.logs[0].AnalysisID)
	assert.Equal(t, "map", logs.logs[0].Phase)
}

func TestRunAnalysisStageErrors(t *testing.T) {
	cases := []struct {
		name  string
		page  *staticPage
		model *echoModel
		stage pipeline.Stage
	}{
		{"collection", &staticPage{failSearch: true}, &echoModel{}, pipeline.StageCollection},
		{"no reviews", &staticPage{blocks: []string{block("ok"), block("too short to keep")}}, &echoModel{}, pipeline.StageNoReviews},
		{"summarization", &staticPage{blocks: []string{block(longReview)}}, &echoModel{fail: true}, pipeline.StageSummarization},
	}

	messages := map[string]bool{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &recordingBus{}
			_, err := newApp(t, tc.page, tc.model, pipeline.WithEventBus(bus)).RunAnalysis(context.Background(), "some phone")

			var stageErr *pipeline.StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tc.stage, stageErr.Stage)
			assert.NotEmpty(t, stageErr.UserMessage())
			messages[stageErr.UserMessage()] = true

			assert.Equal(t, []string{string(events.AnalysisRequested), string(events.AnalysisFailed)}, bus.types())
			failed, err := eventbus.DecodeJSON[events.AnalysisFailedEvent](bus.events[1])
			require.NoError(t, err)
			assert.Equal(t, string(tc.stage), failed.Stage)
		})
	}
	assert.Len(t, messages, len(cases), "each failure class has its own message")
}

func TestRunAnalysisEmptyQuery(t *testing.T) {
	_, err := newApp(t, &staticPage{}, &echoModel{}).RunAnalysis(context.Background(), " ")
	assert.ErrorIs(t, err, pipeline.ErrEmptyQuery)
}

func TestStageErrorUnwrap(t *testing.T) {
	err := &pipeline.StageError{Stage: pipeline.StageCollection, Err: collector.ErrStructural}
	assert.ErrorIs(t, err, collector.ErrStructural)
	assert.Contains(t, err.Error(), "collection")
}
