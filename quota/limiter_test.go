package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-digest/config"
	"review-digest/quota"
)

func TestLimiterUnlimited(t *testing.T) {
	l := quota.NewLimiter(config.SummaryQuotaConfig{})
	for range 50 {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Equal(t, 50, l.UsedToday())
}

func TestLimiterDailyLimit(t *testing.T) {
	l := quota.NewLimiter(config.SummaryQuotaConfig{RequestsPerDay: 2})

	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))
	assert.ErrorIs(t, l.Wait(context.Background()), quota.ErrDailyQuotaExceeded)
}

func TestLimiterHonoursCancellation(t *testing.T) {
	l := quota.NewLimiter(config.SummaryQuotaConfig{RequestsPerMinute: 1})
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}
