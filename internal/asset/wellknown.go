package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDArbitrum = 42161
	ChainIDBase     = 8453
)

// Ethereum mainnet token addresses
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

var (
	USDC = MustNewToken(ChainIDEthereum, AddrUSDCEthereum, "USDC", "USD Coin", 6)
	USDT = MustNewToken(ChainIDEthereum, AddrUSDTEthereum, "USDT", "Tether USD", 6)
	DAI  = MustNewToken(ChainIDEthereum, AddrDAIEthereum, "DAI", "Dai Stablecoin", 18)
	WETH = MustNewToken(ChainIDEthereum, AddrWETHEthereum, "WETH", "Wrapped Ether", 18)
	WBTC = MustNewToken(ChainIDEthereum, AddrWBTCEthereum, "WBTC", "Wrapped Bitcoin", 8)
)

// DefaultRegistry returns a registry pre-populated with mainnet tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{USDC, USDT, DAI, WETH, WBTC} {
		// Well-known tokens never collide.
		_ = r.Register(a)
	}
	return r
}
