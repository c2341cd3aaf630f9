package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one trading day of a price series. An invalid Close marks a gap.
type Observation struct {
	Date  time.Time           `json:"date"`
	Close decimal.NullDecimal `json:"close"`
}

// PriceSeries is a chronological close-price series, one entry per trading day.
type PriceSeries []Observation

// NewPriceSeries copies obs and sorts the copy by date.
func NewPriceSeries(obs []Observation) PriceSeries {
	series := make(PriceSeries, len(obs))
	copy(series, obs)
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

// Point builds a valid observation.
func Point(date time.Time, close float64) Observation {
	return Observation{
		Date:  date,
		Close: decimal.NewNullDecimal(decimal.NewFromFloat(close)),
	}
}

// Gap builds an observation with no close price.
func Gap(date time.Time) Observation {
	return Observation{Date: date}
}

// Closes returns the close channel after forward-fill then back-fill.
// Leading gaps take the first known value, every other gap takes the last known one.
// The result is empty when the series carries no valid close at all.
func (s PriceSeries) Closes() []float64 {
	first := -1
	for i, obs := range s {
		if obs.Close.Valid {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	closes := make([]float64, len(s))
	last := s[first].Close.Decimal.InexactFloat64()
	for i, obs := range s {
		if obs.Close.Valid {
			last = obs.Close.Decimal.InexactFloat64()
		}
		closes[i] = last
	}
	return closes
}

// Latest returns the last valid close, if any.
func (s PriceSeries) Latest() (decimal.Decimal, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Close.Valid {
			return s[i].Close.Decimal, true
		}
	}
	return decimal.Zero, false
}
