package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	sma, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, sma)
}

func TestSMANotEnoughData(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	require.Error(t, err)
}

func TestEMAConvergesToConstant(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 42
	}
	ema, err := EMA(closes, 10)
	require.NoError(t, err)
	require.NotEmpty(t, ema)
	assert.InDelta(t, 42, ema[len(ema)-1], 1e-9)
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi, err := RSI(closes, 14)
	require.NoError(t, err)
	require.NotEmpty(t, rsi)
	assert.Greater(t, rsi[len(rsi)-1], 99.0)
}

func TestMACDProducesBothLines(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*10
	}
	macdLine, signalLine, err := MACD(closes)
	require.NoError(t, err)
	assert.NotEmpty(t, macdLine)
	assert.NotEmpty(t, signalLine)
}

func TestBollingerBandsOrdering(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/3)*5
	}
	upper, middle, lower, err := BollingerBands(closes)
	require.NoError(t, err)
	require.NotEmpty(t, upper)
	require.Equal(t, len(upper), len(middle))
	require.Equal(t, len(upper), len(lower))

	last := len(upper) - 1
	assert.Greater(t, upper[last], middle[last])
	assert.Less(t, lower[last], middle[last])
}

func TestAlignTail(t *testing.T) {
	aligned := AlignTail([]float64{1, 2, 3}, 5)
	require.Len(t, aligned, 5)
	assert.True(t, math.IsNaN(aligned[0]))
	assert.True(t, math.IsNaN(aligned[1]))
	assert.Equal(t, []float64{1, 2, 3}, aligned[2:])
}

func TestAlignTailTruncatesLongSeries(t *testing.T) {
	aligned := AlignTail([]float64{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, []float64{3, 4, 5}, aligned)
}
