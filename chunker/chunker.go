// Package chunker packs cleaned review comments into token-bounded chunks.
package chunker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"review-digest/models"
)

// TokenCounter 는 요약 모델 자신의 토크나이저로 토큰 수를 센다.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// NewRand 는 셔플용 난수 생성기를 만든다. seed 가 0 이면 현재 시각을 시드로 쓴다.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Shuffle 은 입력을 건드리지 않고 섞인 사본을 반환한다. 결과는 입력의 순열이다.
func Shuffle(comments []string, rng *rand.Rand) []string {
	out := make([]string, len(comments))
	copy(out, comments)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Pack 은 입력 순서를 유지한 채 greedy first-fit 으로 청크를 만든다.
// 토큰 수는 댓글 단위로 세어 누적한다. 예산을 혼자 넘는 댓글은 버리거나 자르지 않고 단독 청크가 된다.
func Pack(ctx context.Context, comments []string, budget int, counter TokenCounter) ([]models.Chunk, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be > 0, got %d", budget)
	}

	var (
		chunks  []models.Chunk
		current []string
		tokens  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, models.Chunk{
			Text:         strings.Join(current, " "),
			TokenCount:   tokens,
			CommentCount: len(current),
		})
		current = nil
		tokens = 0
	}

	for i, comment := range comments {
		n, err := counter.CountTokens(ctx, comment)
		if err != nil {
			return nil, fmt.Errorf("failed to count tokens of comment %d: %w", i, err)
		}
		if len(current) > 0 && tokens+n > budget {
			flush()
		}
		current = append(current, comment)
		tokens += n
	}
	flush()

	return chunks, nil
}
