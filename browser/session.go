// Package browser implements collector.Page on top of a headless Chrome driven by chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"review-digest/collector"
	"review-digest/config"
)

const navigationTimeout = 60 * time.Second

// navigator.webdriver 를 감춰 자동화 브라우저 탐지를 피한다.
const hideWebdriverScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined })`

// Session 은 분석 요청 하나가 단독으로 사용하는 브라우저 탭이다.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ collector.Page = (*Session)(nil)

// Opener 는 요청마다 새 브라우저 세션을 여는 collector.Opener 를 만든다.
func Opener(cfg config.CollectorConfig) collector.Opener {
	return func(ctx context.Context) (collector.Page, error) {
		return NewSession(ctx, cfg)
	}
}

func NewSession(ctx context.Context, cfg config.CollectorConfig) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("headless", cfg.Headless == nil || *cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crashpad", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(config.Logger.Debugf),
		chromedp.WithErrorf(config.Logger.Errorf),
	)

	// 첫 Run 은 타임아웃 없는 탭 컨텍스트로 호출해야 브라우저 수명이 세션 수명과 같아진다.
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverScript).Do(ctx)
		return err
	}))
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

func (s *Session) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, navigationTimeout, chromedp.Navigate(url))
}

func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible))
}

func (s *Session) TypeAndSubmit(ctx context.Context, selector, text string, timeout time.Duration) error {
	return s.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.SendKeys(selector, text+kb.Enter, chromedp.BySearch),
	)
}

func (s *Session) Attribute(ctx context.Context, selector, name string, timeout time.Duration) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.run(ctx, timeout, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.BySearch))
	return value, ok, err
}

func (s *Session) Scroll(ctx context.Context, pos collector.ScrollPosition) error {
	script := `window.scrollTo(0, 0); true`
	if pos == collector.ScrollBottom {
		script = `window.scrollTo(0, document.body.scrollHeight); true`
	}
	var done bool
	return s.run(ctx, navigationTimeout, chromedp.Evaluate(script, &done))
}

func (s *Session) ReadAll(ctx context.Context, selector string, timeout time.Duration) ([]string, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, timeout, chromedp.Nodes(selector, &nodes, chromedp.BySearch)); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(nodes))
	err := s.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, n := range nodes {
			html, err := dom.GetOuterHTML().WithNodeID(n.NodeID).Do(ctx)
			if err != nil {
				return err
			}
			out = append(out, html)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// run 은 탭 컨텍스트에서 조회 한 번을 timeout 안에 실행한다.
// 호출자 ctx 가 취소되면 함께 중단하고, 제한 시간 초과는 collector.ErrTimeout 으로 감싼다.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", collector.ErrTimeout, err)
	}
	return err
}
