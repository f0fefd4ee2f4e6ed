package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeResolution(t *testing.T) {
	tests := []struct {
		in   string
		want Resolution
	}{
		{"1m", Resolution1Min},
		{"5m", Resolution5Min},
		{"15m", Resolution15Min},
		{"30m", Resolution30Min},
		{"1h", Resolution60Min},
		{"60m", Resolution60Min},
		{"2h", Resolution120Min},
		{"4h", Resolution240Min},
		{"240m", Resolution240Min},
		{"1d", ResolutionDay},
		{"1D", ResolutionDay},
		{"d", ResolutionDay},
		{"1w", ResolutionWeek},
		{"1M", ResolutionMonth},
		{"1mo", ResolutionMonth},
		{"m", ResolutionMonth},
		{"D", ResolutionDay},
		{"60", Resolution60Min},
		{"M", ResolutionMonth},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeResolution(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeResolution_Invalid(t *testing.T) {
	_, err := NormalizeResolution("3m")
	assert.Error(t, err)
	assert.Equal(t, KindInvalidResolution, KindOf(err))

	_, err = NormalizeResolution("  ")
	assert.Error(t, err)
	assert.Equal(t, KindMissingParameter, KindOf(err))
}

func TestResolution_Duration(t *testing.T) {
	assert.Equal(t, 4*time.Hour, Resolution240Min.Duration())
	assert.True(t, Resolution5Min.IsIntraday())
	assert.False(t, ResolutionDay.IsIntraday())
	assert.Equal(t, time.Duration(0), ResolutionMonth.Duration())
}
