package models

// Chunk 는 모델 호출 한 번에 들어가는 리뷰 묶음이다.
type Chunk struct {
	Text         string `json:"text"`
	TokenCount   int    `json:"token_count"`
	CommentCount int    `json:"comment_count"`
}
