// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
)

const ruler = "================================================================================"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu        sync.Mutex
	out       io.Writer
	verbose   bool
	connected map[string]bool
}

// NewConsoleReporter creates a reporter writing to out (stdout when nil).
// With verbose every scanned strategy is printed, otherwise only profitable ones.
func NewConsoleReporter(out io.Writer, verbose bool) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{
		out:       out,
		verbose:   verbose,
		connected: make(map[string]bool),
	}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Arbitrage Engine Started")
	fmt.Fprintln(r.out, "========================")
	return nil
}

// Report prints one line per strategy and a detail block for profitable routes.
func (r *ConsoleReporter) Report(opp *domain.Opportunity) {
	if opp == nil || (!r.verbose && !opp.IsProfitable()) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	status := "no profit"
	if opp.IsProfitable() {
		status = "PROFITABLE"
	}
	fmt.Fprintf(r.out, "[%s] #%d %-28s %-22s %-8s pnl=%s bps=%s %s\n",
		opp.Timestamp.Format("15:04:05"),
		opp.BlockNumber,
		opp.Strategy,
		opp.Best.Route.String(),
		opp.Direction(),
		opp.Profit.PNL.StringFixed(6),
		opp.Profit.PNLBps.StringFixed(2),
		status,
	)

	if opp.IsProfitable() {
		r.writeDetails(opp)
	}
}

func (r *ConsoleReporter) writeDetails(opp *domain.Opportunity) {
	route := opp.Best.Route
	fmt.Fprintln(r.out, ruler)
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY")
	fmt.Fprintln(r.out, ruler)
	fmt.Fprintf(r.out, "ID:             %s\n", opp.ID)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Strategy:       %s\n", opp.Strategy)
	fmt.Fprintf(r.out, "Direction:      %s (%s)\n", opp.Direction(), opp.Direction().Describe(opp.Params))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	for i := 1; i < route.Len() && i < len(opp.Best.AmountsOut); i++ {
		hop := route.Hop(i)
		fmt.Fprintf(r.out, "  hop %d  %-12s %-9s %s %s -> %s %s\n",
			i, hop.Venue, hop.Kind,
			opp.Best.AmountsOut[i-1], route.Tokens[i-1],
			opp.Best.AmountsOut[i], route.Tokens[i],
		)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "PNL:            %s %s (%s bps)\n", opp.Profit.PNL.String(), route.Tokens[0], opp.Profit.PNLBps.StringFixed(2))
	fmt.Fprintf(r.out, "Latency:        %s\n", opp.Latency)
	fmt.Fprintln(r.out, ruler)
}

// ReportScan prints the scan summary in verbose mode or when something failed.
func (r *ConsoleReporter) ReportScan(s domain.ScanSummary) {
	if !r.verbose && s.Failed == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] scan #%d: strategies=%d profitable=%d failed=%d best_bps=%s latency=%s\n",
		s.Timestamp.Format("15:04:05"), s.BlockNumber, s.Strategies, s.Profitable, s.Failed,
		s.BestPNLBps.StringFixed(2), s.Latency)
}

// UpdateFeedStatus prints feed connectivity transitions.
func (r *ConsoleReporter) UpdateFeedStatus(feeds []pricingApp.FeedStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range feeds {
		prev, seen := r.connected[f.Name]
		if seen && prev == f.Connected {
			continue
		}
		r.connected[f.Name] = f.Connected

		status := "disconnected"
		if f.Connected {
			status = "connected"
		}
		if f.LastError != "" && !f.Connected {
			status += " (" + f.LastError + ")"
		}
		fmt.Fprintf(r.out, "[%s] feed %s: %s\n", time.Now().Format("15:04:05"), f.Name, status)
	}
}

// Stop prints the shutdown line.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Engine Stopped")
	return nil
}
