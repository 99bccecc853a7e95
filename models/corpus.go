package models

// Corpus 는 한 번의 분석 요청에 대해 정규화·선별된 리뷰 집합이다.
// 생성 이후에는 변경하지 않으며 다른 요청과 공유하지 않는다.
type Corpus struct {
	ProductName        string             `json:"product_name"`
	InitialReviewCount int                `json:"initial_review_count"`
	FinalReviewCount   int                `json:"final_review_count"`
	OverallRating      *float64           `json:"overall_rating"`
	TotalRatingsCount  int                `json:"total_ratings_count"`
	Reviews            []NormalizedReview `json:"reviews"`
}

// CleanedComments 는 청크 패킹에 넘길 정규화된 본문 목록을 새 슬라이스로 반환한다.
func (c *Corpus) CleanedComments() []string {
	out := make([]string, 0, len(c.Reviews))
	for _, r := range c.Reviews {
		out = append(out, r.CleanedComment)
	}
	return out
}
