package collector

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout 는 제한 시간 안에 요소를 찾지 못했을 때 Page 구현이 감싸서 반환한다.
	ErrTimeout = errors.New("lookup timed out")
	// ErrStructural 은 검색창, 상품 링크, 리뷰 패널, 첫 리뷰 블록처럼 수집에 반드시 필요한 요소를 찾지 못했음을 뜻한다.
	ErrStructural = errors.New("structural lookup failed")
)

type ScrollPosition int

const (
	ScrollTop ScrollPosition = iota
	ScrollBottom
)

// Page 는 수집기가 사용하는 문서 소스 기능이다.
// 셀렉터는 XPath 또는 CSS 모두 허용하며, 모든 조회는 주어진 timeout 안에서만 기다린다.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	TypeAndSubmit(ctx context.Context, selector, text string, timeout time.Duration) error
	Attribute(ctx context.Context, selector, name string, timeout time.Duration) (string, bool, error)
	Scroll(ctx context.Context, pos ScrollPosition) error
	// ReadAll 은 셀렉터에 걸리는 모든 요소의 outer HTML 을 문서 순서대로 반환한다.
	ReadAll(ctx context.Context, selector string, timeout time.Duration) ([]string, error)
	Close() error
}

// Opener 는 분석 요청마다 새 문서 소스 세션을 연다. 세션은 요청 간에 공유하지 않는다.
type Opener func(ctx context.Context) (Page, error)
