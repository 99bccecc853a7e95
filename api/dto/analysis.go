package dto

import (
	"review-digest/models"
	"review-digest/pipeline"
)

// AnalyzeRequestDTO 는 분석 요청 본문이다.
type AnalyzeRequestDTO struct {
	Query string `json:"query" binding:"required"`
}

// ErrorResponseDTO 는 공통 에러 응답 형식이다. Stage 는 분석 단계 실패일 때만 채운다.
type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

type SummaryDTO struct {
	Text             string `json:"text"`
	SourceChunkCount int    `json:"source_chunk_count"`
	WordCount        int    `json:"word_count"`
	Reduced          bool   `json:"reduced"`
}

// AnalysisDTO 는 분석 결과 응답이다. 원문 댓글은 싣지 않고 정규화된 리뷰만 노출한다.
type AnalysisDTO struct {
	ID                 string      `json:"id"`
	Product            string      `json:"product"`
	InitialReviewCount int         `json:"initial_review_count"`
	FinalReviewCount   int         `json:"final_review_count"`
	OverallRating      *float64    `json:"overall_rating"`
	TotalRatingsCount  int         `json:"total_ratings_count"`
	Summary            SummaryDTO  `json:"summary"`
	Reviews            []ReviewDTO `json:"reviews"`
	DurationMs         int64       `json:"duration_ms"`
}

type ReviewDTO struct {
	Title     string `json:"title"`
	Comment   string `json:"comment"`
	WordCount int    `json:"word_count"`
}

func NewAnalysisDTO(a *pipeline.Analysis) AnalysisDTO {
	out := AnalysisDTO{
		ID:         a.ID,
		Product:    a.Query,
		Reviews:    []ReviewDTO{},
		DurationMs: a.CompletedAt.Sub(a.StartedAt).Milliseconds(),
	}
	if c := a.Corpus; c != nil {
		out.Product = c.ProductName
		out.InitialReviewCount = c.InitialReviewCount
		out.FinalReviewCount = c.FinalReviewCount
		out.OverallRating = c.OverallRating
		out.TotalRatingsCount = c.TotalRatingsCount
		for _, r := range c.Reviews {
			out.Reviews = append(out.Reviews, newReviewDTO(r))
		}
	}
	if s := a.Summary; s != nil {
		out.Summary = SummaryDTO{
			Text:             s.Text,
			SourceChunkCount: s.SourceChunkCount,
			WordCount:        s.WordCount,
			Reduced:          s.Reduced,
		}
	}
	return out
}

func newReviewDTO(r models.NormalizedReview) ReviewDTO {
	return ReviewDTO{Title: r.Title, Comment: r.CleanedComment, WordCount: r.WordCount}
}
