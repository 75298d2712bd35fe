package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScanSummary describes one pass over all strategies.
type ScanSummary struct {
	BlockNumber uint64
	Timestamp   time.Time
	Strategies  int
	Profitable  int
	Failed      int
	BestPNLBps  decimal.Decimal
	Latency     time.Duration
}
