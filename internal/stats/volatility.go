package stats

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	pricePlaces = 2
	ratioPlaces = 4

	// Cumulative probabilities of the two-sided ~70% and ~95% central intervals.
	band70Prob = 0.85
	band95Prob = 0.975

	fenceFactor = 1.5
)

// VolatilityReport is computed once per (symbol, lookback window).
// Exactly one of Metrics and Error is set.
type VolatilityReport struct {
	Symbol  string   `json:"symbol"`
	Days    int      `json:"days"`
	Metrics *Metrics `json:"metrics,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// OK reports whether the report carries metrics.
func (r VolatilityReport) OK() bool {
	return r.Metrics != nil
}

// Metrics holds the distribution statistics of a close series. Price-scale fields are
// rounded to 2 places, shape and ratio fields to 4. ZScore is left unrounded and is NaN
// when the standard deviation is zero.
type Metrics struct {
	Observations int     `json:"observations"`
	Close        float64 `json:"close"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Q1           float64 `json:"q1"`
	Q3           float64 `json:"q3"`
	LowerFence   float64 `json:"q_start"`
	UpperFence   float64 `json:"q_end"`
	StdDev       float64 `json:"std_dev"`
	Variance     float64 `json:"variance"`
	CV           float64 `json:"cv"`
	Skewness     float64 `json:"skewness"`
	Kurtosis     float64 `json:"kurtosis"`
	T70Low       float64 `json:"t_70_start"`
	T70High      float64 `json:"t_70_end"`
	T95Low       float64 `json:"t_95_start"`
	T95High      float64 `json:"t_95_end"`
	ZScore       float64 `json:"z_score"`
}

// ZScoreDefined reports whether the z-score could be computed.
func (m *Metrics) ZScoreDefined() bool {
	return !math.IsNaN(m.ZScore) && !math.IsInf(m.ZScore, 0)
}

// FormatZScore renders the z-score for display, "N/A" when undefined.
func (m *Metrics) FormatZScore() string {
	if !m.ZScoreDefined() {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", m.ZScore)
}

// MarshalJSON writes undefined values as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type wire struct {
		Observations int      `json:"observations"`
		Close        *float64 `json:"close"`
		Mean         *float64 `json:"mean"`
		Median       *float64 `json:"median"`
		Q1           *float64 `json:"q1"`
		Q3           *float64 `json:"q3"`
		LowerFence   *float64 `json:"q_start"`
		UpperFence   *float64 `json:"q_end"`
		StdDev       *float64 `json:"std_dev"`
		Variance     *float64 `json:"variance"`
		CV           *float64 `json:"cv"`
		Skewness     *float64 `json:"skewness"`
		Kurtosis     *float64 `json:"kurtosis"`
		T70Low       *float64 `json:"t_70_start"`
		T70High      *float64 `json:"t_70_end"`
		T95Low       *float64 `json:"t_95_start"`
		T95High      *float64 `json:"t_95_end"`
		ZScore       *float64 `json:"z_score"`
	}
	return json.Marshal(wire{
		Observations: m.Observations,
		Close:        finite(m.Close),
		Mean:         finite(m.Mean),
		Median:       finite(m.Median),
		Q1:           finite(m.Q1),
		Q3:           finite(m.Q3),
		LowerFence:   finite(m.LowerFence),
		UpperFence:   finite(m.UpperFence),
		StdDev:       finite(m.StdDev),
		Variance:     finite(m.Variance),
		CV:           finite(m.CV),
		Skewness:     finite(m.Skewness),
		Kurtosis:     finite(m.Kurtosis),
		T70Low:       finite(m.T70Low),
		T70High:      finite(m.T70High),
		T95Low:       finite(m.T95Low),
		T95High:      finite(m.T95High),
		ZScore:       finite(m.ZScore),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Compute derives the volatility report of series. An empty series, or one without any
// close price, yields the no-data variant naming the symbol.
func Compute(symbol string, series PriceSeries, days int) VolatilityReport {
	if len(series) == 0 {
		return noData(symbol, days, fmt.Sprintf("No data available for %s", symbol))
	}
	closes := series.Closes()
	if len(closes) == 0 {
		return noData(symbol, days, fmt.Sprintf("No closing price data available for %s", symbol))
	}

	return VolatilityReport{
		Symbol:  symbol,
		Days:    days,
		Metrics: describe(closes),
	}
}

func noData(symbol string, days int, msg string) VolatilityReport {
	return VolatilityReport{Symbol: symbol, Days: days, Error: msg}
}

// describe computes every statistic at full precision and rounds only when the
// record is assembled.
func describe(closes []float64) *Metrics {
	n := len(closes)
	latest := closes[n-1]
	flat := isFlat(closes)
	mean := stat.Mean(closes, nil)
	if flat {
		mean = closes[0]
	}

	q1 := quantile(closes, 0.25)
	median := quantile(closes, 0.5)
	q3 := quantile(closes, 0.75)
	iqr := q3 - q1

	variance, std := math.NaN(), math.NaN()
	switch {
	case n > 1 && flat:
		variance, std = 0, 0
	case n > 1:
		variance = stat.Variance(closes, nil)
		std = math.Sqrt(variance)
	}

	cv := math.NaN()
	if mean != 0 {
		cv = std / mean
	}

	skew, kurt := math.NaN(), math.NaN()
	if !flat {
		skew, kurt = moments(closes, mean)
	}

	t70, t95 := math.NaN(), math.NaN()
	if n > 1 {
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
		t70 = dist.Quantile(band70Prob)
		t95 = dist.Quantile(band95Prob)
	}

	z := math.NaN()
	if std > 0 {
		z = (latest - mean) / std
	}

	return &Metrics{
		Observations: n,
		Close:        round(latest, pricePlaces),
		Mean:         round(mean, pricePlaces),
		Median:       round(median, pricePlaces),
		Q1:           round(q1, pricePlaces),
		Q3:           round(q3, pricePlaces),
		LowerFence:   round(q1-fenceFactor*iqr, pricePlaces),
		UpperFence:   round(q3+fenceFactor*iqr, pricePlaces),
		StdDev:       round(std, pricePlaces),
		Variance:     round(variance, pricePlaces),
		CV:           round(cv, ratioPlaces),
		Skewness:     round(skew, ratioPlaces),
		Kurtosis:     round(kurt, ratioPlaces),
		T70Low:       round(mean-t70*std, pricePlaces),
		T70High:      round(mean+t70*std, pricePlaces),
		T95Low:       round(mean-t95*std, pricePlaces),
		T95High:      round(mean+t95*std, pricePlaces),
		ZScore:       z,
	}
}

// moments returns the population (biased) skewness and excess kurtosis.
// Both are NaN for a series with no dispersion.
func moments(values []float64, mean float64) (skew, kurt float64) {
	var m2, m3, m4 float64
	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	n := float64(len(values))
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return math.NaN(), math.NaN()
	}
	return m3 / math.Pow(m2, 1.5), m4/(m2*m2) - 3
}

func isFlat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
