package models

// Summary 는 파이프라인의 최종 산출물이다. 저장하지 않고 호출자에게 그대로 전달한다.
type Summary struct {
	Text             string `json:"text"`
	SourceChunkCount int    `json:"source_chunk_count"`
	WordCount        int    `json:"word_count"`
	Reduced          bool   `json:"reduced"`
}
