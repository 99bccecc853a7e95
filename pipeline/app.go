// Package pipeline wires collection, admission, packing and summarization into one analysis run.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"review-digest/admission"
	"review-digest/browser"
	"review-digest/chunker"
	"review-digest/collector"
	"review-digest/config"
	"review-digest/corpus"
	"review-digest/eventbus"
	"review-digest/events"
	"review-digest/models"
	"review-digest/quota"
	"review-digest/summarizer"
)

// CallLogStore 는 모델 호출 로그 저장소다. repositories.AILogRepository 가 구현한다.
type CallLogStore interface {
	Insert(ctx context.Context, log models.AILog) (*mongo.InsertOneResult, error)
}

// App 은 한 번 만들어 여러 분석 요청이 공유하는 애플리케이션 컨텍스트다.
// 공유되는 것은 요약 모델, 언어 판별기, 호출 한도뿐이고 브라우저 세션과 Corpus 는 요청마다 새로 만든다.
type App struct {
	cfg config.AppConfig

	model    summarizer.Model
	detector admission.Detector
	limiter  *quota.Limiter
	opener   collector.Opener

	logs   CallLogStore
	bus    eventbus.EventBus
	topic  eventbus.Topic
	source string
}

type Option func(*App)

func WithModel(m summarizer.Model) Option {
	return func(a *App) { a.model = m }
}

func WithDetector(d admission.Detector) Option {
	return func(a *App) { a.detector = d }
}

func WithOpener(o collector.Opener) Option {
	return func(a *App) { a.opener = o }
}

func WithCallLogStore(s CallLogStore) Option {
	return func(a *App) { a.logs = s }
}

func WithEventBus(bus eventbus.EventBus) Option {
	return func(a *App) { a.bus = bus }
}

// WithSource 는 발행하는 이벤트의 source 필드 값을 정한다.
func WithSource(source string) Option {
	return func(a *App) { a.source = source }
}

// NewApp 은 요약 모델을 한 번 로드하고 나머지 공유 자원을 준비한다.
func NewApp(ctx context.Context, cfg config.AppConfig, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		topic:  eventbus.NewTopic(cfg.Kafka.Topic),
		source: events.SourceAPI,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.model == nil {
		m, err := summarizer.NewModel(ctx, cfg.Summarizer)
		if err != nil {
			return nil, err
		}
		a.model = m
	}
	if a.detector == nil {
		a.detector = admission.NewWhatlangDetector(cfg.Admission)
	}
	if a.opener == nil {
		a.opener = browser.Opener(cfg.Collector)
	}
	a.limiter = quota.NewLimiter(cfg.SummaryQuota)

	config.Logger.Infof("pipeline ready: model=%s budget=%d target=%d", a.model.Name(), cfg.Chunking.TokenBudget, cfg.Collector.TargetReviews)
	return a, nil
}

func (a *App) Config() config.AppConfig { return a.cfg }

// Analysis 는 RunAnalysis 의 결과다.
type Analysis struct {
	ID          string          `json:"id"`
	Query       string          `json:"query"`
	Corpus      *models.Corpus  `json:"corpus"`
	Summary     *models.Summary `json:"summary"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// RunAnalysis 는 수집부터 요약까지 한 상품에 대한 분석을 순차적으로 수행한다.
// 실패하면 어느 단계인지 담은 *StageError 를 반환한다.
func (a *App) RunAnalysis(ctx context.Context, query string) (*Analysis, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	run := &Analysis{ID: uuid.NewString(), Query: query, StartedAt: time.Now()}
	config.InfoWithFields("analysis started", config.Fields{"analysis_id": run.ID, "query": query})
	a.publish(ctx, events.AnalysisRequested, events.NewAnalysisRequestedEvent(a.source, run.ID, query))

	builder := corpus.NewBuilder(
		collector.New(a.cfg.Collector, a.opener),
		admission.NewFilter(a.detector, a.cfg.Admission),
		corpus.WithDedupe(a.cfg.Admission.Dedupe),
	)
	c, err := builder.Build(ctx, query)
	if err != nil {
		if errors.Is(err, corpus.ErrNoReviews) {
			return nil, a.fail(ctx, run, stageError(StageNoReviews, err))
		}
		return nil, a.fail(ctx, run, stageError(StageCollection, err))
	}
	run.Corpus = c

	comments := chunker.Shuffle(c.CleanedComments(), chunker.NewRand(a.cfg.Chunking.ShuffleSeed))
	chunks, err := chunker.Pack(ctx, comments, a.cfg.Chunking.TokenBudget, a.model)
	if err != nil {
		return nil, a.fail(ctx, run, stageError(StageSummarization, err))
	}
	config.Logger.Infof("packed %d comments into %d chunks (analysis_id=%s)", len(comments), len(chunks), run.ID)

	opts := []summarizer.Option{summarizer.WithLimiter(a.limiter)}
	if a.logs != nil {
		opts = append(opts, summarizer.WithRecorder(&callLogRecorder{store: a.logs, analysisID: run.ID}))
	}
	summary, err := summarizer.NewHierarchical(a.model, a.cfg.Summarizer, opts...).Summarize(ctx, chunks)
	if err != nil {
		return nil, a.fail(ctx, run, stageError(StageSummarization, err))
	}
	run.Summary = summary
	run.CompletedAt = time.Now()

	done := events.NewAnalysisCompletedEvent(a.source, run.ID, query)
	done.InitialReviewCount = c.InitialReviewCount
	done.FinalReviewCount = c.FinalReviewCount
	done.OverallRating = c.OverallRating
	done.TotalRatingsCount = c.TotalRatingsCount
	done.ChunkCount = summary.SourceChunkCount
	done.Reduced = summary.Reduced
	done.Summary = summary.Text
	done.DurationMs = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	a.publish(ctx, events.AnalysisCompleted, done)

	config.InfoWithFields("analysis completed", config.Fields{
		"analysis_id":        run.ID,
		"final_review_count": c.FinalReviewCount,
		"chunks":             summary.SourceChunkCount,
		"reduced":            summary.Reduced,
		"duration_ms":        done.DurationMs,
	})
	return run, nil
}

func (a *App) fail(ctx context.Context, run *Analysis, err *StageError) error {
	config.ErrorWithFields("analysis failed", config.Fields{
		"analysis_id": run.ID,
		"query":       run.Query,
		"stage":       string(err.Stage),
		"error":       err.Err.Error(),
	})

	evt := events.NewAnalysisFailedEvent(a.source, run.ID, run.Query, string(err.Stage), err.Err)
	evt.DurationMs = time.Since(run.StartedAt).Milliseconds()
	a.publish(ctx, events.AnalysisFailed, evt)
	return err
}

// publish 는 이벤트 발행 실패를 분석 실패로 취급하지 않는다.
func (a *App) publish(ctx context.Context, eventType events.EventType, payload any) {
	if a.bus == nil {
		return
	}
	evt, err := eventbus.NewJSONEvent("", string(eventType), payload)
	if err != nil {
		config.Logger.Warnf("failed to encode %s event: %v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.bus.Publish(ctx, a.topic, evt); err != nil {
		config.Logger.Warnf("failed to publish %s event: %v", eventType, err)
	}
}

type callLogRecorder struct {
	store      CallLogStore
	analysisID string
}

func (r *callLogRecorder) Record(ctx context.Context, l summarizer.CallLog) {
	log := models.AILog{
		AnalysisID:     r.analysisID,
		Phase:          string(l.Phase),
		ChunkIndex:     l.ChunkIndex,
		ModelName:      l.ModelName,
		InputTokens:    l.TokenUsage.InputTokens,
		OutputTokens:   l.TokenUsage.OutputTokens,
		DurationMs:     l.LatencyMs,
		OutputResponse: l.Response,
		RequestedAt:    l.RequestedAt,
		CompletedAt:    l.CompletedAt,
	}
	if l.Err != nil {
		msg := l.Err.Error()
		log.ErrorMessage = &msg
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := r.store.Insert(ctx, log); err != nil {
		config.Logger.Warnf("failed to store ai log (analysis_id=%s): %v", r.analysisID, err)
	}
}
