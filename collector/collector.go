// Package collector drives a document source page by page and reads raw review records.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"review-digest/config"
	"review-digest/models"
)

type State string

const (
	StateNavigating         State = "navigating"
	StateSearching          State = "searching"
	StateOpeningProduct     State = "opening_product"
	StateOpeningReviewPanel State = "opening_review_panel"
	StateReadingPage        State = "reading_page"
	StateAdvancingPage      State = "advancing_page"
	StateDone               State = "done"
	StateAborted            State = "aborted"
)

// Collection 은 한 상품에 대해 수집한 원본 리뷰와 평점 요약이다.
// Reviews 는 페이지 순서, 페이지 안에서는 문서 순서를 따르며 중복 제거를 하지 않는다.
type Collection struct {
	Query      string             `json:"query"`
	ProductURL string             `json:"product_url"`
	Aggregate  *Aggregate         `json:"aggregate,omitempty"`
	Reviews    []models.RawReview `json:"reviews"`
	Pages      int                `json:"pages"`
	State      State              `json:"state"`
}

type Collector struct {
	cfg  config.CollectorConfig
	open Opener
}

func New(cfg config.CollectorConfig, open Opener) *Collector {
	return &Collector{cfg: cfg, open: open}
}

// run 은 Collect 한 번의 상태를 들고 있다.
type run struct {
	cfg  config.CollectorConfig
	page Page
	coll *Collection
}

// Collect 는 목표 리뷰 수에 도달하거나 더 읽을 페이지가 없을 때까지 리뷰를 모은다.
// 구조적 조회 실패 시 ErrStructural 을 감싼 오류와 함께 그때까지 읽은 Collection 을 반환한다.
// 부분 수집 결과(목표 미달, 0건 포함)는 오류가 아니다.
func (c *Collector) Collect(ctx context.Context, query string) (*Collection, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty product query")
	}

	page, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open document source: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			config.Logger.Warnf("failed to close document source: %v", cerr)
		}
	}()

	r := &run{cfg: c.cfg, page: page, coll: &Collection{Query: query}}
	state := StateNavigating
	for state != StateDone && state != StateAborted {
		next, err := r.step(ctx, state)
		if err != nil {
			r.coll.State = StateAborted
			config.Logger.Errorf("collection aborted at %s: query=%q reviews=%d err=%v", state, query, len(r.coll.Reviews), err)
			return r.coll, err
		}
		config.Logger.Debugf("collector %s -> %s (reviews=%d)", state, next, len(r.coll.Reviews))
		state = next
	}

	r.coll.State = state
	config.Logger.Infof("collection finished: query=%q reviews=%d pages=%d", query, len(r.coll.Reviews), r.coll.Pages)
	return r.coll, nil
}

func (r *run) step(ctx context.Context, state State) (State, error) {
	switch state {
	case StateNavigating:
		return r.navigate(ctx)
	case StateSearching:
		return r.search(ctx)
	case StateOpeningProduct:
		return r.openProduct(ctx)
	case StateOpeningReviewPanel:
		return r.openReviewPanel(ctx)
	case StateReadingPage:
		return r.readPage(ctx)
	case StateAdvancingPage:
		return r.advancePage(ctx)
	default:
		return StateAborted, fmt.Errorf("unknown collector state %q", state)
	}
}

func (r *run) navigate(ctx context.Context) (State, error) {
	if err := r.page.Navigate(ctx, r.cfg.BaseURL); err != nil {
		return StateAborted, fmt.Errorf("%w: open %s: %v", ErrStructural, r.cfg.BaseURL, err)
	}
	if err := sleep(ctx, r.cfg.PageLoadDelay); err != nil {
		return StateAborted, err
	}

	// 로그인 팝업은 없을 수도 있다.
	if err := r.page.Click(ctx, r.cfg.Selectors.Popup, r.cfg.PopupTimeout); err != nil {
		if ctx.Err() != nil {
			return StateAborted, ctx.Err()
		}
		config.Logger.Debugf("no popup to close: %v", err)
	} else if err := sleep(ctx, r.cfg.PageSettleDelay); err != nil {
		return StateAborted, err
	}
	return StateSearching, nil
}

func (r *run) search(ctx context.Context) (State, error) {
	err := r.structural(ctx, "search box", func() error {
		return r.page.TypeAndSubmit(ctx, r.cfg.Selectors.SearchBox, r.coll.Query, r.cfg.SearchTimeout)
	})
	if err != nil {
		return StateAborted, err
	}
	if err := sleep(ctx, r.cfg.PageSettleDelay); err != nil {
		return StateAborted, err
	}
	return StateOpeningProduct, nil
}

func (r *run) openProduct(ctx context.Context) (State, error) {
	var href string
	err := r.structural(ctx, "product link", func() error {
		v, ok, err := r.page.Attribute(ctx, r.cfg.Selectors.ProductLink, "href", r.cfg.ProductTimeout)
		if err != nil {
			return err
		}
		if !ok || strings.TrimSpace(v) == "" {
			return errors.New("product link has no href")
		}
		href = v
		return nil
	})
	if err != nil {
		return StateAborted, err
	}

	productURL, err := resolveURL(r.cfg.BaseURL, href)
	if err != nil {
		return StateAborted, fmt.Errorf("%w: product link %q: %v", ErrStructural, href, err)
	}
	r.coll.ProductURL = productURL

	if err := r.page.Navigate(ctx, productURL); err != nil {
		return StateAborted, fmt.Errorf("%w: open product: %v", ErrStructural, err)
	}
	if err := r.scrollThrough(ctx); err != nil {
		return StateAborted, err
	}
	return StateOpeningReviewPanel, nil
}

func (r *run) openReviewPanel(ctx context.Context) (State, error) {
	err := r.structural(ctx, "reviews panel", func() error {
		return r.page.Click(ctx, r.cfg.Selectors.ReviewsPanel, r.cfg.ReviewsPanelTimeout)
	})
	if err != nil {
		return StateAborted, err
	}
	if err := r.scrollThrough(ctx); err != nil {
		return StateAborted, err
	}
	return StateReadingPage, nil
}

func (r *run) readPage(ctx context.Context) (State, error) {
	if err := sleep(ctx, r.cfg.PageSettleDelay); err != nil {
		return StateAborted, err
	}
	sel := r.cfg.Selectors

	// 평점 요약 영역은 첫 페이지에서 한 번만 찾는다.
	if r.coll.Pages == 0 {
		r.readAggregate(ctx)
	}

	var blocks []string
	readBlocks := func() error {
		var err error
		blocks, err = r.page.ReadAll(ctx, sel.ReviewBlock, r.cfg.ReviewBlocksTimeout)
		return err
	}

	// 첫 페이지의 리뷰 블록은 구조적 요소이고, 이후 페이지에서 블록이 없으면 수집을 정상 종료한다.
	if r.coll.Pages == 0 {
		if err := r.structural(ctx, "review blocks", readBlocks); err != nil {
			return StateAborted, err
		}
	} else if err := readBlocks(); err != nil {
		if ctx.Err() != nil {
			return StateAborted, ctx.Err()
		}
		config.Logger.Infof("no review blocks on page %d: %v", r.coll.Pages+1, err)
		return StateDone, nil
	}
	if len(blocks) == 0 {
		return StateDone, nil
	}

	for _, block := range blocks {
		review, err := ParseReview(block, sel)
		if err != nil {
			config.Logger.Warnf("failed to parse review block: %v", err)
			continue
		}
		r.coll.Reviews = append(r.coll.Reviews, review)
	}
	r.coll.Pages++

	if len(r.coll.Reviews) >= r.cfg.TargetReviews {
		return StateDone, nil
	}
	return StateAdvancingPage, nil
}

func (r *run) readAggregate(ctx context.Context) {
	blocks, err := r.page.ReadAll(ctx, r.cfg.Selectors.AggregateBlock, r.cfg.ReviewBlocksTimeout)
	if err != nil || len(blocks) == 0 {
		config.Logger.Debugf("aggregate block not found: %v", err)
		return
	}
	agg, err := ParseAggregate(blocks[0], r.cfg.Selectors)
	if err != nil {
		config.Logger.Warnf("failed to parse aggregate block: %v", err)
		return
	}
	r.coll.Aggregate = &agg
}

func (r *run) advancePage(ctx context.Context) (State, error) {
	if err := r.page.Click(ctx, r.cfg.Selectors.NextPage, r.cfg.NextPageTimeout); err != nil {
		if ctx.Err() != nil {
			return StateAborted, ctx.Err()
		}
		config.Logger.Infof("no more pages after page %d", r.coll.Pages)
		return StateDone, nil
	}
	return StateReadingPage, nil
}

// scrollThrough 는 지연 로딩 영역이 그려지도록 페이지 끝까지 내렸다가 다시 올린다.
func (r *run) scrollThrough(ctx context.Context) error {
	if err := sleep(ctx, r.cfg.PageSettleDelay); err != nil {
		return err
	}
	if err := r.page.Scroll(ctx, ScrollBottom); err != nil {
		config.Logger.Debugf("scroll to bottom failed: %v", err)
	}
	if err := sleep(ctx, r.cfg.PageSettleDelay); err != nil {
		return err
	}
	if err := r.page.Scroll(ctx, ScrollTop); err != nil {
		config.Logger.Debugf("scroll to top failed: %v", err)
	}
	return nil
}

// structural 은 필수 조회를 수행한다. 타임아웃만 재시도 대상이며 횟수는 collector.retries 로 정한다.
func (r *run) structural(ctx context.Context, what string, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RetryDelay), uint64(r.cfg.Retries)),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTimeout) {
			config.Logger.Warnf("%s lookup timed out (attempt %d/%d)", what, attempt, r.cfg.Retries+1)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrStructural, what, err)
	}
	return nil
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
