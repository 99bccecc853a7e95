// Package admission decides which raw reviews enter the corpus.
package admission

import (
	"errors"
	"strings"

	"review-digest/config"
	"review-digest/models"
	"review-digest/normalizer"
)

// Reason 은 리뷰 한 건에 대한 선별 결과다.
type Reason string

const (
	Accepted         Reason = "accepted"
	RejectedLanguage Reason = "non_target_language"
	// RejectedUndetectable 은 언어 판별 자체가 실패한 경우로, 오류가 아닌 정상적인 거절이다.
	RejectedUndetectable Reason = "undetectable_language"
	RejectedTooShort     Reason = "too_short"
)

type Filter struct {
	detector             Detector
	language             string
	minWords             int
	minWordsLargeCorpus  int
	largeCorpusThreshold int
}

func NewFilter(detector Detector, cfg config.AdmissionConfig) *Filter {
	return &Filter{
		detector:             detector,
		language:             strings.ToLower(cfg.Language),
		minWords:             cfg.MinWords,
		minWordsLargeCorpus:  cfg.MinWordsLargeCorpus,
		largeCorpusThreshold: cfg.LargeCorpusThreshold,
	}
}

// MinWords 는 수집된 원본 리뷰 수에 따른 최소 단어 수를 반환한다.
// 리뷰 수가 많을수록 더 엄격한 기준을 적용한다.
func (f *Filter) MinWords(rawCount int) int {
	if rawCount >= f.largeCorpusThreshold {
		return f.minWordsLargeCorpus
	}
	return f.minWords
}

// Admit 는 언어 판별, 정규화, 단어 수 검사를 순서대로 수행하고 첫 실패에서 멈춘다.
// 언어 판별은 정규화 이전의 원문 본문에 대해 수행한다.
func (f *Filter) Admit(review models.RawReview, rawCount int) (models.NormalizedReview, Reason) {
	raw := review.CommentText()

	lang, err := f.detector.Detect(raw)
	if err != nil {
		if !errors.Is(err, ErrUndetectable) {
			config.Logger.Debugf("language detection failed: %v", err)
		}
		return models.NormalizedReview{}, RejectedUndetectable
	}
	if !strings.EqualFold(lang, f.language) {
		return models.NormalizedReview{}, RejectedLanguage
	}

	cleaned := normalizer.Normalize(raw)
	words := normalizer.WordCount(cleaned)
	if words <= f.MinWords(rawCount) {
		return models.NormalizedReview{}, RejectedTooShort
	}

	return models.NormalizedReview{
		Title:          normalizer.Normalize(review.Title),
		RawComment:     raw,
		CleanedComment: cleaned,
		WordCount:      words,
	}, Accepted
}
