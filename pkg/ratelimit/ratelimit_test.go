package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in   string
		want Limit
	}{
		{"5/minute", Limit{Rate: 5, Period: time.Minute, Burst: 5}},
		{"200/day", Limit{Rate: 200, Period: 24 * time.Hour, Burst: 200}},
		{" 50 / Hour ", Limit{Rate: 50, Period: time.Hour, Burst: 50}},
		{"10 per seconds", Limit{Rate: 10, Period: time.Second, Burst: 10}},
	}
	for _, tc := range cases {
		got, err := ParseLimit(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "5", "x/minute", "0/minute", "5/fortnight"} {
		_, err := ParseLimit(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseLimitsSkipsBlank(t *testing.T) {
	limits, err := ParseLimits([]string{"200/day", "", "5/minute"})
	require.NoError(t, err)
	assert.Len(t, limits, 2)

	_, err = ParseLimits([]string{"bogus"})
	assert.Error(t, err)
}

func TestMemoryRateLimiterExhaustsAndRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryRateLimiter()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	limit := Limit{Rate: 2, Period: time.Minute, Burst: 2}

	for i := 0; i < 2; i++ {
		res, err := m.Allow(ctx, "1.2.3.4", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := m.Allow(ctx, "1.2.3.4", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.InDelta(t, float64(30*time.Second), float64(res.RetryAfter), float64(time.Second))

	// 其他 key 不受影响
	res, err = m.Allow(ctx, "5.6.7.8", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(31 * time.Second)
	res, err = m.Allow(ctx, "1.2.3.4", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryRateLimiterSeparatesRules(t *testing.T) {
	m := NewMemoryRateLimiter()
	ctx := context.Background()

	perMinute := Limit{Rate: 1, Period: time.Minute, Burst: 1}
	perHour := Limit{Rate: 5, Period: time.Hour, Burst: 5}

	res, err := m.Allow(ctx, "k", perMinute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = m.Allow(ctx, "k", perHour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)

	res, err = m.Allow(ctx, "k", perMinute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryRateLimiterRejectsInvalidLimit(t *testing.T) {
	_, err := NewMemoryRateLimiter().Allow(context.Background(), "k", Limit{})
	assert.Error(t, err)
}

func TestMemoryRateLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryRateLimiter()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	perMinute := Limit{Rate: 2, Period: time.Minute, Burst: 2}
	perHour := Limit{Rate: 2, Period: time.Hour, Burst: 2}

	for _, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := m.Allow(ctx, key, perMinute)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := m.Allow(ctx, "10.0.0.9", perHour)
		require.NoError(t, err)
	}
	require.Len(t, m.limiters, 4)

	now = now.Add(2 * time.Minute)
	res, err := m.Allow(ctx, "10.0.0.9", perHour)
	require.NoError(t, err)

	// 已回满的按分钟条目被清理，仍在冷却中的按小时条目保留计数
	assert.False(t, res.Allowed)
	assert.Len(t, m.limiters, 1)
	assert.Contains(t, m.limiters, "10.0.0.9:"+perHour.String())
}
