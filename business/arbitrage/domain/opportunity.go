// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"
)

// Strategy is a configured pure-arbitrage loop to scan.
type Strategy struct {
	Name       string
	Params     PureArbParams
	Thresholds Thresholds
}

// Opportunity is the outcome of scanning one strategy at one trigger.
type Opportunity struct {
	ID          string
	Strategy    string
	Params      PureArbParams
	BlockNumber uint64
	Timestamp   time.Time
	Best        Candidate
	Candidates  []Candidate
	Profit      ProfitResult
	Latency     time.Duration
}

// IsProfitable returns true if the best candidate met the thresholds.
func (o *Opportunity) IsProfitable() bool {
	return o.Profit.IsProfitable
}

// Direction of the winning route.
func (o *Opportunity) Direction() Direction {
	return o.Best.Direction
}
