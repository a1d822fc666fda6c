package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeRenewalEnd_UnexpiredExtendsFromEndDate(t *testing.T) {
	now := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	currentEnd := now.Add(5 * 24 * time.Hour)

	got := computeRenewalEnd(now, &currentEnd, 30)
	require.Equal(t, currentEnd.AddDate(0, 0, 30), got)
	require.True(t, got.After(currentEnd), "renewal must never shorten the paid period")
}

func TestComputeRenewalEnd_LapsedExtendsFromNow(t *testing.T) {
	now := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	currentEnd := now.Add(-3 * 24 * time.Hour)

	got := computeRenewalEnd(now, &currentEnd, 30)
	require.Equal(t, now.AddDate(0, 0, 30), got)
}

func TestComputeRenewalEnd_NilEndDate(t *testing.T) {
	now := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, now.AddDate(0, 0, 90), computeRenewalEnd(now, nil, 90))
}

func TestComputeRenewalEnd_NeverDecreases(t *testing.T) {
	now := time.Now()
	for _, offsetDays := range []int{-400, -30, -1, 0, 1, 30, 400} {
		end := now.AddDate(0, 0, offsetDays)
		got := computeRenewalEnd(now, &end, 30)
		require.False(t, got.Before(end), "offset %d: renewal decreased EndDate", offsetDays)
		require.False(t, got.Before(now), "offset %d: renewal ended in the past", offsetDays)
	}
}
