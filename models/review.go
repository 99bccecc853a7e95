package models

// RawReview 는 수집기가 리뷰 블록 하나에서 읽어낸 원본 레코드다.
// 각 필드는 독립적으로 비어 있을 수 있다. Comment 가 nil 이면 본문 요소 자체가 없었다는 뜻이고,
// 빈 문자열이면 요소는 있었지만 텍스트가 없었다는 뜻이다.
type RawReview struct {
	UserRating string  `json:"user_rating"`
	Title      string  `json:"title"`
	Comment    *string `json:"comment"`
}

// CommentText 는 nil 본문을 빈 문자열로 취급해 반환한다.
func (r RawReview) CommentText() string {
	if r.Comment == nil {
		return ""
	}
	return *r.Comment
}

// NormalizedReview 는 언어/길이 검사를 통과한 리뷰다.
// RawComment 는 감사/디버깅 용도로 원문을 보존하고, 이후 단계는 CleanedComment 만 사용한다.
type NormalizedReview struct {
	Title          string `json:"title"`
	RawComment     string `json:"raw_comment"`
	CleanedComment string `json:"cleaned_comment"`
	WordCount      int    `json:"word_count"`
}
