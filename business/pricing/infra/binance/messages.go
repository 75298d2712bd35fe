// Package binance feeds Binance spot order books into the pricing registry.
package binance

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fd1az/arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// WSResponse is a WebSocket subscription response.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent is the combined-stream wrapper for all stream messages.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// PartialDepthEvent represents a partial book depth snapshot.
// Stream: <symbol>@depth5, @depth10, @depth20 (with optional @100ms/@1000ms speed).
// Symbol is not in the payload; it is taken from the stream name.
type PartialDepthEvent struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // Top bids [[price, qty], ...]
	Asks         [][]string `json:"asks"` // Top asks [[price, qty], ...]
	Symbol       string     `json:"-"`
}

// DepthResponse is the REST API response for order book depth. It has the
// same shape as the partial depth stream payload.
type DepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// ToPartialDepthEvent converts a DepthResponse so REST and stream data take
// the same path into the registry.
func (d *DepthResponse) ToPartialDepthEvent(symbol string) *PartialDepthEvent {
	return &PartialDepthEvent{
		LastUpdateID: d.LastUpdateID,
		Bids:         d.Bids,
		Asks:         d.Asks,
		Symbol:       symbol,
	}
}

// OrderBook normalizes the event into a domain book. Binance already sends
// bids highest-first and asks lowest-first; zero-size levels are dropped.
func (e *PartialDepthEvent) OrderBook() (domain.OrderBook, error) {
	bids, err := ParseLevels(e.Bids)
	if err != nil {
		return domain.OrderBook{}, err
	}
	asks, err := ParseLevels(e.Asks)
	if err != nil {
		return domain.OrderBook{}, err
	}
	return domain.OrderBook{Bids: bids, Asks: asks}, nil
}

// ParseLevels parses raw [price, qty] pairs.
func ParseLevels(raw [][]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for i, r := range raw {
		if len(r) < 2 {
			return nil, apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContextf("level %d has %d fields", i, len(r)))
		}
		level, err := domain.NewPriceLevel(r[0], r[1])
		if err != nil {
			return nil, err
		}
		if level.Size.IsZero() {
			continue
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// DepthStream returns the partial book depth stream name for a symbol.
// @depth20 sends the top 20 levels on every tick, not diffs.
func DepthStream(symbol string, speedMs int) string {
	return strings.ToLower(symbol) + "@depth20@" + strconv.Itoa(speedMs) + "ms"
}

// extractSymbolFromStream extracts the symbol from a stream name.
// Example: "ethusdc@depth20@100ms" -> "ETHUSDC"
func extractSymbolFromStream(stream string) string {
	if idx := strings.Index(stream, "@"); idx > 0 {
		return strings.ToUpper(stream[:idx])
	}
	return strings.ToUpper(stream)
}
