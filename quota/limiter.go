package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"review-digest/config"
)

// ErrDailyQuotaExceeded 는 일일 모델 호출 한도를 모두 사용했을 때 반환된다.
var ErrDailyQuotaExceeded = errors.New("daily summarization quota exceeded")

// Limiter 는 요약 모델 호출에 대한 분당/일일 한도를 관리한다.
// 모든 분석 요청이 하나의 Limiter 를 공유하며, 카운터는 메모리에만 있어 재시작 시 초기화된다.
type Limiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	interval time.Duration
	lastCall time.Time

	now func() time.Time
}

// NewLimiter 는 summary_quota 설정으로 Limiter 를 만든다. 0 이하 값은 해당 방향의 제한을 두지 않는다.
func NewLimiter(cfg config.SummaryQuotaConfig) *Limiter {
	l := &Limiter{now: time.Now}
	if cfg.RequestsPerDay > 0 {
		l.dailyLimit = cfg.RequestsPerDay
	}
	if cfg.RequestsPerMinute > 0 {
		l.interval = time.Minute / time.Duration(cfg.RequestsPerMinute)
	}
	return l
}

// Wait 는 호출 가능 시점까지 기다린 뒤 한 번의 호출을 예약한다.
// 일일 한도가 소진되면 기다리지 않고 ErrDailyQuotaExceeded 를 반환한다.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()

		now := l.now().UTC()
		todayKey := now.Format("2006-01-02")
		if l.dayKey != todayKey {
			l.dayKey = todayKey
			l.usedToday = 0
		}

		if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
			l.mu.Unlock()
			return ErrDailyQuotaExceeded
		}

		var delay time.Duration
		if l.interval > 0 && !l.lastCall.IsZero() {
			delay = l.lastCall.Add(l.interval).Sub(now)
		}

		if delay <= 0 {
			l.usedToday++
			l.lastCall = now
			l.mu.Unlock()
			return nil
		}

		// 락을 풀고 기다린 뒤 상태를 다시 평가한다.
		l.mu.Unlock()
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// UsedToday 는 오늘(UTC) 예약된 호출 수를 반환한다.
func (l *Limiter) UsedToday() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usedToday
}
