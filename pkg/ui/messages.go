// Package ui provides the Bubble Tea dashboard for the arbitrage engine.
package ui

import (
	"time"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
)

// OpportunityMsg carries the outcome of one strategy scan.
type OpportunityMsg struct {
	Opportunity *domain.Opportunity
}

// ScanMsg is sent after every scan with its aggregate outcome.
type ScanMsg struct {
	Summary domain.ScanSummary
}

// FeedStatusMsg replaces the displayed liquidity feed health.
type FeedStatusMsg struct {
	Feeds []pricingApp.FeedStatus
}

// BlockMsg is sent when a new block triggers a scan.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg drives animations.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg reports progress of a startup step.
type StartupMsg struct {
	Step    string // "config", "feeds", "blocks", "scanner"
	Status  string // "connecting", "connected", "done", "failed"
	Message string
}
