package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/arbitrage-engine/business/blockchain/domain"
)

// BlockchainService exposes chain heads to other contexts.
type BlockchainService struct {
	source BlockSource
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(source BlockSource) *BlockchainService {
	return &BlockchainService{source: source}
}

// SubscribeBlocks starts the head subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.source.Subscribe(ctx)
}

// LatestBlock returns the current head.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.source.LatestBlock(ctx)
}

// Status returns the connection status.
func (s *BlockchainService) Status() domain.ConnectionStatus {
	return s.source.Status()
}

// Close stops the head subscription.
func (s *BlockchainService) Close() error {
	return s.source.Close()
}

// HealthCheck returns a check that fails when the head source is down or no
// block arrived within maxAge.
func (s *BlockchainService) HealthCheck(maxAge time.Duration) func(context.Context) (bool, string) {
	return func(context.Context) (bool, string) {
		st := s.source.Status()
		if st.State != domain.StateConnected {
			return false, string(st.State)
		}
		if st.LastUpdate.IsZero() {
			return false, "no block yet"
		}
		if age := time.Since(st.LastUpdate); age > maxAge {
			return false, fmt.Sprintf("last block #%d %s ago", st.LastBlock, age.Round(time.Second))
		}
		msg := fmt.Sprintf("block #%d", st.LastBlock)
		if st.Polling {
			msg += " (polling)"
		}
		return true, msg
	}
}
