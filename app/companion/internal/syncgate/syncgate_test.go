package syncgate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateNeverSynced(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	d := Evaluate(now, time.Time{}, time.Time{})
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.HoursUntilNext)
}

func TestEvaluateSameDayBlocked(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 10, 0, 0, time.UTC)
	born := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	d := Evaluate(now, born, last)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.HoursUntilNext)
	assert.Contains(t, d.Message(), "1 hours")
}

func TestEvaluateHoursRoundUp(t *testing.T) {
	born := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 1, 0, 30, 0, 0, time.UTC)

	d := Evaluate(time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC), born, last)
	assert.False(t, d.Allowed)
	assert.Equal(t, 23, d.HoursUntilNext)

	d = Evaluate(time.Date(2024, 6, 1, 1, 0, 0, 1, time.UTC), born, last)
	assert.Equal(t, 23, d.HoursUntilNext)
}

func TestEvaluateNextDayAllowed(t *testing.T) {
	born := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	now := time.Date(2024, 6, 2, 0, 1, 0, 0, time.UTC)

	assert.True(t, Evaluate(now, born, last).Allowed)
}

func TestEvaluateMintDayExemption(t *testing.T) {
	born := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	// 铸造时 LastUpdated 与出生时间同时写入，相差毫秒级
	last := born.Add(300 * time.Millisecond)
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	d := Evaluate(now, born, last)
	assert.True(t, d.Allowed)
}

func TestEvaluateMintGraceOnlyOnMintDay(t *testing.T) {
	// 紧贴 UTC 零点铸造，次日不再享受铸造日豁免
	born := time.Date(2024, 5, 31, 23, 59, 59, 800_000_000, time.UTC)
	last := time.Date(2024, 6, 1, 0, 0, 0, 100_000_000, time.UTC)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	d := Evaluate(now, born, last)
	assert.False(t, d.Allowed)
	assert.Equal(t, 15, d.HoursUntilNext)
}

func TestEvaluateDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 13, 37, 0, 0, time.UTC)
	born := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	first := Evaluate(now, born, last)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(now, born, last))
	}
}
