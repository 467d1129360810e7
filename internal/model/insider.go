package model

import "time"

// InsiderTransaction is a single reported insider trade.
type InsiderTransaction struct {
	Name     string
	Shares   int64
	Change   int64 // signed share delta, negative for sales
	Price    float64
	Date     time.Time
	Code     string // filing transaction code, e.g. "P" or "S"
}

// InsiderHolder is a major insider position holder.
type InsiderHolder struct {
	Name     string
	Relation string
	Shares   int64
}

// InsiderActivity bundles transactions and holders for one ticker.
type InsiderActivity struct {
	Symbol       string
	Transactions []InsiderTransaction
	Holders      []InsiderHolder
}
