package asset

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestAsset_FromRaw(t *testing.T) {
	tests := []struct {
		name  string
		asset *Asset
		raw   string
		want  string
	}{
		{"one weth", WETH, "1000000000000000000", "1"},
		{"usdc cents", USDC, "2500010000", "2500.01"},
		{"wbtc sats", WBTC, "12345678", "0.12345678"},
		{"zero", USDT, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := new(big.Int).SetString(tt.raw, 10)
			got, err := tt.asset.FromRaw(raw)
			if err != nil {
				t.Fatalf("FromRaw() error = %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FromRaw(%s) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAsset_FromRawInvalid(t *testing.T) {
	if _, err := USDC.FromRaw(nil); !errors.Is(err, ErrNilRaw) {
		t.Errorf("FromRaw(nil) error = %v, want %v", err, ErrNilRaw)
	}
	if _, err := USDC.FromRaw(big.NewInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("FromRaw(-1) error = %v, want %v", err, ErrNegativeAmount)
	}
}

func TestNewToken_Invalid(t *testing.T) {
	if _, err := NewToken(1, common.Address{}, "", "", 18); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("NewToken() error = %v, want %v", err, ErrEmptySymbol)
	}
	if _, err := NewToken(1, common.Address{}, "X", "", 40); !errors.Is(err, ErrTooManyDecimals) {
		t.Errorf("NewToken() error = %v, want %v", err, ErrTooManyDecimals)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	if r.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", r.Count())
	}

	got, ok := r.BySymbol(ChainIDEthereum, "weth")
	if !ok || !got.Equals(WETH) {
		t.Errorf("BySymbol(weth) = %v, %v", got, ok)
	}
	if _, ok := r.BySymbol(ChainIDBase, "WETH"); ok {
		t.Error("BySymbol on another chain should miss")
	}
	got, ok = r.ByAddress(AddrUSDCEthereum)
	if !ok || got.Symbol() != "USDC" {
		t.Errorf("ByAddress(usdc) = %v, %v", got, ok)
	}

	if err := r.Register(WETH); err != nil {
		t.Errorf("re-registering the same token: %v", err)
	}
	fake := MustNewToken(ChainIDEthereum, common.HexToAddress("0x01"), "WETH", "", 18)
	if err := r.Register(fake); err == nil {
		t.Error("Register() with a taken symbol should fail")
	}
}
