// Package di holds the typed container tokens of the blockchain context.
package di

import (
	"github.com/fd1az/arbitrage-engine/business/blockchain/app"
	"github.com/fd1az/arbitrage-engine/internal/di"
)

// BlockchainService is shared with the scanner; BlockSource is the watcher
// behind it.
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	BlockSource       = di.NewToken[app.BlockSource]("blockchain:blockSource")
)

func GetBlockchainService(sr di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(sr, BlockchainService)
}

func GetBlockSource(sr di.ServiceRegistry) app.BlockSource { return di.GetToken(sr, BlockSource) }
