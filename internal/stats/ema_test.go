package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA(t *testing.T) {
	ema, err := EMA([]float64{10, 11, 12, 13}, 3)
	require.NoError(t, err)

	// alpha = 0.5
	assert.InDeltaSlice(t, []float64{10, 10.5, 11.25, 12.125}, ema, 1e-9)
}

func TestEMARejectsBadInput(t *testing.T) {
	_, err := EMA([]float64{1, 2}, 0)
	assert.Error(t, err)

	_, err = EMA(nil, 20)
	assert.Error(t, err)
}

func TestTrend(t *testing.T) {
	snap, err := Trend(seriesOf(10, 11, 12, 13), []int{3, 1})
	require.NoError(t, err)

	assert.Equal(t, 13.0, snap.Close)
	assert.Equal(t, 12.13, snap.EMAs[3])
	assert.Equal(t, 13.0, snap.EMAs[1])
	assert.Equal(t, "close=13.00; EMA1=13.00 (close above); EMA3=12.13 (close above)", snap.String())
}

func TestTrendWithoutCloses(t *testing.T) {
	_, err := Trend(PriceSeries{}, []int{20})
	assert.Error(t, err)
}
