// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is the part of a block header the scanner cares about: a new
// number means pool reserves may have moved.
type Block struct {
	Number    uint64
	Hash      common.Hash
	Timestamp time.Time
	BaseFee   *big.Int
}

// ConnectionState represents the state of a blockchain connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus contains detailed connection information.
type ConnectionStatus struct {
	State      ConnectionState
	LastBlock  uint64
	LastUpdate time.Time
	Reconnects int
	Polling    bool // true when head subscriptions are unavailable
}
