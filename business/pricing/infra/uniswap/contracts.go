package uniswap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PairABI covers the read-only Uniswap V2 pair methods the feed calls.
const PairABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const (
	methodGetReserves = "getReserves"
	methodToken0      = "token0"
	methodToken1      = "token1"
)

var pairABI = mustParseABI(PairABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("uniswap: parse pair ABI: %v", err))
	}
	return parsed
}

// Reserves is the decoded getReserves result in raw token units.
type Reserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

func packCall(method string) ([]byte, error) {
	return pairABI.Pack(method)
}

func unpackReserves(data []byte) (Reserves, error) {
	out, err := pairABI.Unpack(methodGetReserves, data)
	if err != nil {
		return Reserves{}, err
	}
	if len(out) != 3 {
		return Reserves{}, fmt.Errorf("getReserves: unexpected output length %d", len(out))
	}
	r0, ok0 := out[0].(*big.Int)
	r1, ok1 := out[1].(*big.Int)
	ts, ok2 := out[2].(uint32)
	if !ok0 || !ok1 || !ok2 {
		return Reserves{}, fmt.Errorf("getReserves: unexpected output types %T %T %T", out[0], out[1], out[2])
	}
	return Reserves{Reserve0: r0, Reserve1: r1, BlockTimestampLast: ts}, nil
}

func unpackAddress(method string, data []byte) (common.Address, error) {
	out, err := pairABI.Unpack(method, data)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("%s: unexpected output length %d", method, len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return addr, nil
}
