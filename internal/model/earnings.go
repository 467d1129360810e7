package model

import "time"

// EarningsCalendar holds the next scheduled earnings report for a ticker.
type EarningsCalendar struct {
	Symbol          string
	NextDate        time.Time
	EPSEstimateLow  float64
	EPSEstimateHigh float64
	RevenueLow      float64
	RevenueHigh     float64
}

// EarningsReport is a single historical earnings result.
type EarningsReport struct {
	Period      time.Time
	EPSActual   float64
	EPSEstimate float64
	Surprise    float64 // percent vs estimate
}
