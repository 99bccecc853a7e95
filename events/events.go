package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	AnalysisRequested EventType = "analysis.requested"
	AnalysisCompleted EventType = "analysis.completed"
	AnalysisFailed    EventType = "analysis.failed"
)

const (
	SourceAPI     = "api"
	SourceCLI     = "cli"
	SchemaVersion = "1.0"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

func newBase(t EventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   SchemaVersion,
	}
}

// AnalysisRequestedEvent 분석 파이프라인 시작 이벤트
type AnalysisRequestedEvent struct {
	BaseEvent
	AnalysisID string `json:"analysis_id"`
	Query      string `json:"query"`
}

// AnalysisCompletedEvent 요약까지 끝난 분석의 결과 요약. 리뷰 본문은 싣지 않는다.
type AnalysisCompletedEvent struct {
	BaseEvent
	AnalysisID         string   `json:"analysis_id"`
	Query              string   `json:"query"`
	InitialReviewCount int      `json:"initial_review_count"`
	FinalReviewCount   int      `json:"final_review_count"`
	OverallRating      *float64 `json:"overall_rating"`
	TotalRatingsCount  int      `json:"total_ratings_count"`
	ChunkCount         int      `json:"chunk_count"`
	Reduced            bool     `json:"reduced"`
	Summary            string   `json:"summary"`
	DurationMs         int64    `json:"duration_ms"`
}

// AnalysisFailedEvent 단계별 실패 이벤트
type AnalysisFailedEvent struct {
	BaseEvent
	AnalysisID string `json:"analysis_id"`
	Query      string `json:"query"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func NewAnalysisRequestedEvent(source, analysisID, query string) AnalysisRequestedEvent {
	return AnalysisRequestedEvent{
		BaseEvent:  newBase(AnalysisRequested, source),
		AnalysisID: analysisID,
		Query:      query,
	}
}

func NewAnalysisCompletedEvent(source, analysisID, query string) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		BaseEvent:  newBase(AnalysisCompleted, source),
		AnalysisID: analysisID,
		Query:      query,
	}
}

func NewAnalysisFailedEvent(source, analysisID, query, stage string, err error) AnalysisFailedEvent {
	return AnalysisFailedEvent{
		BaseEvent:  newBase(AnalysisFailed, source),
		AnalysisID: analysisID,
		Query:      query,
		Stage:      stage,
		Error:      err.Error(),
	}
}

// SerializeEvent 이벤트를 JSON으로 직렬화하고 타입 정보 반환
func SerializeEvent(event any) ([]byte, EventType, error) {
	var eventType EventType

	switch e := event.(type) {
	case AnalysisRequestedEvent:
		eventType = e.Type
	case AnalysisCompletedEvent:
		eventType = e.Type
	case AnalysisFailedEvent:
		eventType = e.Type
	default:
		return nil, "", fmt.Errorf("unknown event type: %T", event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}

	return data, eventType, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any

	switch eventType {
	case AnalysisRequested:
		event = &AnalysisRequestedEvent{}
	case AnalysisCompleted:
		event = &AnalysisCompletedEvent{}
	case AnalysisFailed:
		event = &AnalysisFailedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}
