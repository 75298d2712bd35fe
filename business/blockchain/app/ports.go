// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/fd1az/arbitrage-engine/business/blockchain/domain"
)

// BlockSource delivers new chain heads.
type BlockSource interface {
	// Subscribe starts watching heads. The channel is closed by Close.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock fetches the current head.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	Status() domain.ConnectionStatus

	Close() error
}
