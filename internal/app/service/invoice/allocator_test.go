package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthPrefix(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "january", at: time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC), want: "INV-202601-"},
		{name: "december", at: time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC), want: "INV-202512-"},
		{name: "single digit month padded", at: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), want: "INV-202603-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, monthPrefix(tt.at))
		})
	}
}

func TestFormatNumber_FiveDigitSequence(t *testing.T) {
	require.Equal(t, "INV-202601-00001", formatNumber("INV-202601-", 1))
	require.Equal(t, "INV-202601-00043", formatNumber("INV-202601-", 43))
	require.Equal(t, "INV-202601-12345", formatNumber("INV-202601-", 12345))
}
