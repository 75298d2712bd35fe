package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
	"github.com/fd1az/arbitrage-engine/pkg/ui"
)

// TUIReporter implements Reporter by forwarding to the Bubble Tea program.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a reporter that sends to the running ui.Program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: ui.Send}
}

// Start marks the scanner step as done on the startup screen.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: "scanner", Status: "done"})
	return nil
}

// Report sends an opportunity to the TUI.
func (r *TUIReporter) Report(opp *domain.Opportunity) {
	r.send(ui.OpportunityMsg{Opportunity: opp})
}

// ReportScan sends the scan summary, and the block if the scan was block-driven.
func (r *TUIReporter) ReportScan(s domain.ScanSummary) {
	if s.BlockNumber > 0 {
		r.send(ui.BlockMsg{Number: s.BlockNumber, Timestamp: s.Timestamp})
	}
	r.send(ui.ScanMsg{Summary: s})
}

// UpdateFeedStatus sends feed health to the TUI.
func (r *TUIReporter) UpdateFeedStatus(feeds []pricingApp.FeedStatus) {
	r.send(ui.FeedStatusMsg{Feeds: feeds})
}

// Stop is a no-op; the program exits on its own quit key or context.
func (r *TUIReporter) Stop() error {
	return nil
}
