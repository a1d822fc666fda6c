package currency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{name: "whole rupees", amount: 499, want: 49900},
		{name: "with paise", amount: 499.50, want: 49950},
		{name: "sub-paise truncated", amount: 10.999, want: 1099},
		{name: "zero", amount: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ToMinorUnits(tt.amount))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	require.Equal(t, 499.0, FromMinorUnits(49900))
	require.Equal(t, 0.01, FromMinorUnits(1))
}
