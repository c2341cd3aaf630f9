package stats

import (
	"fmt"
	"sort"
	"strings"
)

// EMA calculates the exponential moving average of values with alpha = 2/(span+1),
// seeded with the first value.
func EMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("invalid EMA span %d", span)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("insufficient data for EMA calculation")
	}

	alpha := 2.0 / (float64(span) + 1.0)
	result := make([]float64, len(values))
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}
	return result, nil
}

// TrendSnapshot is the latest close together with the latest EMA per period.
type TrendSnapshot struct {
	Close float64         `json:"close"`
	EMAs  map[int]float64 `json:"emas"`
}

// Trend evaluates the EMAs of the filled close channel of series.
func Trend(series PriceSeries, periods []int) (*TrendSnapshot, error) {
	closes := series.Closes()
	if len(closes) == 0 {
		return nil, fmt.Errorf("no closing prices")
	}

	snap := &TrendSnapshot{
		Close: round(closes[len(closes)-1], pricePlaces),
		EMAs:  make(map[int]float64, len(periods)),
	}
	for _, period := range periods {
		ema, err := EMA(closes, period)
		if err != nil {
			return nil, err
		}
		snap.EMAs[period] = round(ema[len(ema)-1], pricePlaces)
	}
	return snap, nil
}

// String renders the snapshot as "close=...; EMA20=..." with periods ascending.
func (t *TrendSnapshot) String() string {
	periods := make([]int, 0, len(t.EMAs))
	for p := range t.EMAs {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	parts := []string{fmt.Sprintf("close=%.2f", t.Close)}
	for _, p := range periods {
		rel := "above"
		if t.Close < t.EMAs[p] {
			rel = "below"
		}
		parts = append(parts, fmt.Sprintf("EMA%d=%.2f (close %s)", p, t.EMAs[p], rel))
	}
	return strings.Join(parts, "; ")
}
