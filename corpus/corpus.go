// Package corpus turns a raw collection into the normalized corpus used for summarization.
package corpus

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"review-digest/admission"
	"review-digest/collector"
	"review-digest/config"
	"review-digest/models"
)

// ErrNoReviews 는 수집은 성공했지만 선별을 통과한 리뷰가 한 건도 없을 때 반환된다.
var ErrNoReviews = errors.New("no reviews passed admission")

type Source interface {
	Collect(ctx context.Context, query string) (*collector.Collection, error)
}

type Option func(*options)

type options struct {
	dedupe bool
}

// WithDedupe 는 정규화된 본문의 해시가 같은 리뷰를 한 번만 남긴다.
func WithDedupe(enabled bool) Option {
	return func(o *options) { o.dedupe = enabled }
}

type Builder struct {
	source Source
	filter *admission.Filter
	opts   []Option
}

func NewBuilder(source Source, filter *admission.Filter, opts ...Option) *Builder {
	return &Builder{source: source, filter: filter, opts: opts}
}

// Build 는 수집과 선별을 거쳐 Corpus 를 만든다.
// 수집 실패는 그대로 감싸서 반환하고, 통과한 리뷰가 없으면 Corpus 와 함께 ErrNoReviews 를 반환한다.
func (b *Builder) Build(ctx context.Context, query string) (*models.Corpus, error) {
	coll, err := b.source.Collect(ctx, query)
	if err != nil {
		return nil, err
	}

	c := Assemble(query, coll, b.filter, b.opts...)
	if c.FinalReviewCount == 0 {
		return c, ErrNoReviews
	}
	return c, nil
}

// Assemble 은 이미 수집된 원본 리뷰에 선별/정규화를 적용한다.
// 최소 단어 수 기준은 선별 이전 원본 리뷰 수로 정한다.
func Assemble(query string, coll *collector.Collection, filter *admission.Filter, opts ...Option) *models.Corpus {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rawCount := len(coll.Reviews)
	c := &models.Corpus{
		ProductName:        strings.TrimSpace(query),
		InitialReviewCount: rawCount,
		Reviews:            []models.NormalizedReview{},
	}
	if coll.Aggregate != nil {
		c.OverallRating = ParseOverallRating(coll.Aggregate.OverallRating)
		c.TotalRatingsCount = ParseTotalRatings(coll.Aggregate.TotalRatings)
	}

	rejected := map[admission.Reason]int{}
	seen := map[uint64]struct{}{}
	duplicates := 0
	for _, raw := range coll.Reviews {
		review, reason := filter.Admit(raw, rawCount)
		if reason != admission.Accepted {
			rejected[reason]++
			continue
		}
		if o.dedupe {
			h := xxhash.Sum64String(review.CleanedComment)
			if _, dup := seen[h]; dup {
				duplicates++
				continue
			}
			seen[h] = struct{}{}
		}
		c.Reviews = append(c.Reviews, review)
	}
	c.FinalReviewCount = len(c.Reviews)

	config.InfoWithFields("corpus assembled", config.Fields{
		"product":               c.ProductName,
		"initial_review_count":  c.InitialReviewCount,
		"final_review_count":    c.FinalReviewCount,
		"min_words":             filter.MinWords(rawCount),
		"rejected_language":     rejected[admission.RejectedLanguage],
		"rejected_undetectable": rejected[admission.RejectedUndetectable],
		"rejected_too_short":    rejected[admission.RejectedTooShort],
		"duplicates":            duplicates,
	})
	return c
}

// ParseOverallRating 은 "4.3" 같은 평점 텍스트를 실수로 바꾼다. 해석할 수 없으면 nil 이다.
func ParseOverallRating(text string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseTotalRatings 는 "12,345 Ratings &" 형식의 텍스트에서 평점 수를 읽는다. 실패하면 0 이다.
func ParseTotalRatings(text string) int {
	text = strings.TrimSpace(strings.ReplaceAll(text, " Ratings &", ""))
	n, err := strconv.Atoi(strings.ReplaceAll(text, ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
