package visualize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSpectrum(db float32) []float32 {
	s := make([]float32, BinCount)
	for i := range s {
		s[i] = db
	}
	return s
}

func TestEnhanceInaudibleIsQuiet(t *testing.T) {
	frame := Enhance(constantSpectrum(-70))
	assert.Equal(t, QuietFrame(), frame)
}

func TestEnhanceCurve(t *testing.T) {
	spectrum := constantSpectrum(-60)
	frame := Enhance(spectrum)

	// (-60 + 90) / 60 = 0.5
	plain := float32(-60 + math.Sqrt(0.5)*60)
	boosted := float32(0)

	tests := []struct {
		bin      int
		expected float32
	}{
		{bin: 0, expected: plain},
		{bin: 2, expected: plain},  // 0.0156, below the voice band
		{bin: 3, expected: boosted}, // 0.0234
		{bin: 38, expected: boosted},
		{bin: 39, expected: plain}, // 0.3047
		{bin: 127, expected: plain},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, frame[tt.bin], 1e-4, "bin %d", tt.bin)
	}
}

func TestEnhanceClampsAndBounds(t *testing.T) {
	spectrum := constantSpectrum(-200)
	spectrum[64] = 10

	frame := Enhance(spectrum)
	assert.InDelta(t, 0, frame[64], 1e-6)
	assert.InDelta(t, DisplayFloor, frame[0], 1e-6)

	for i, db := range frame {
		assert.GreaterOrEqual(t, db, float32(DisplayFloor), "bin %d", i)
		assert.LessOrEqual(t, db, float32(DisplayCeiling), "bin %d", i)
	}
}

func TestEnhanceBoostSaturatesAtCeiling(t *testing.T) {
	// (-42 + 90) / 60 = 0.8; boosted to 1.6 it would overshoot to +15.9 dB
	frame := Enhance(constantSpectrum(-42))

	assert.Equal(t, float32(DisplayCeiling), frame[10])
	assert.InDelta(t, -60+math.Sqrt(0.8)*60, frame[64], 1e-4)
}

func TestEnhanceShortSpectrum(t *testing.T) {
	spectrum := constantSpectrum(-30)[:64]
	frame := Enhance(spectrum)

	assert.Greater(t, frame[10], float32(DisplayFloor))
	assert.Equal(t, float32(DisplayFloor), frame[100])
}

func TestSpecialFrames(t *testing.T) {
	require.True(t, SilenceFrame().IsSilence())
	require.False(t, QuietFrame().IsSilence())
	assert.Equal(t, float32(QuietDecibels), QuietFrame().Peak())
}

func TestLevels(t *testing.T) {
	var f Frame
	f[0] = -100
	f[1] = -60
	f[2] = -30
	f[3] = 0

	levels := f.Levels()
	require.Len(t, levels, BinCount)
	assert.Equal(t, 0.0, levels[0])
	assert.Equal(t, 0.0, levels[1])
	assert.InDelta(t, 0.5, levels[2], 1e-9)
	assert.Equal(t, 1.0, levels[3])
}
