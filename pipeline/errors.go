package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery 는 상품 검색어가 비어 있을 때 반환된다.
var ErrEmptyQuery = errors.New("product query is empty")

type Stage string

const (
	StageCollection    Stage = "collection"
	StageNoReviews     Stage = "no_reviews"
	StageSummarization Stage = "summarization"
)

// StageError 는 분석이 어느 단계에서 실패했는지 알려준다.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// UserMessage 는 실패 단계별로 사용자에게 보여줄 안내 문구를 반환한다.
func (e *StageError) UserMessage() string {
	switch e.Stage {
	case StageCollection:
		return "Could not reach the product page or its reviews. Check the product name and try again later."
	case StageNoReviews:
		return "The product was found, but none of its reviews were detailed English reviews, so there is nothing to summarize."
	case StageSummarization:
		return "The summarization model is unavailable or failed while generating the summary. Please try again later."
	default:
		return "The analysis failed."
	}
}

func stageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
