// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/arbitrage-engine/business/blockchain/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
)

// Reporter receives scan results for display or logging.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report delivers the scored outcome of one strategy at one trigger.
	Report(opp *domain.Opportunity)

	// ReportScan is called once per trigger after every strategy ran.
	ReportScan(summary domain.ScanSummary)

	// UpdateFeedStatus delivers liquidity feed health.
	UpdateFeedStatus(status []pricingApp.FeedStatus)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// BlockTrigger delivers new chain heads. *blockchainApp.BlockchainService
// satisfies it.
type BlockTrigger interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error)
}
