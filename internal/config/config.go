// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Uniswap   UniswapConfig   `mapstructure:"uniswap"`
	Static    StaticConfig    `mapstructure:"static"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// EngineConfig tunes the pricing engine.
type EngineConfig struct {
	DefaultPrecision int32 `mapstructure:"default_precision"`
}

// EthereumConfig holds Ethereum node configuration. Leaving both URLs empty
// runs the engine without a chain: no block trigger and no Uniswap feed.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
}

// Enabled reports whether a node endpoint is configured.
func (c EthereumConfig) Enabled() bool {
	return c.WebSocketURL != "" || c.HTTPURL != ""
}

// RPCURL prefers the websocket endpoint, which also serves eth_call.
func (c EthereumConfig) RPCURL() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	return c.HTTPURL
}

// BinanceMarket maps an exchange symbol (BTCUSDT) to the canonical pair
// the engine registers it under (BTC_USDT).
type BinanceMarket struct {
	Symbol string `mapstructure:"symbol"`
	Pair   string `mapstructure:"pair"`
}

// BinanceConfig holds Binance API configuration.
type BinanceConfig struct {
	Enabled           bool            `mapstructure:"enabled"`
	Venue             string          `mapstructure:"venue"`
	WebSocketURL      string          `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	RESTURL           string          `mapstructure:"rest_url"`
	Markets           []BinanceMarket `mapstructure:"markets"`
	DepthLimit        int             `mapstructure:"depth_limit"`
	DepthSpeedMs      int             `mapstructure:"depth_speed_ms"`
	StaleTimeout      time.Duration   `mapstructure:"stale_timeout"`
	RequestsPerMinute int             `mapstructure:"requests_per_minute"`
	RESTFallback      bool            `mapstructure:"rest_fallback"`
	RequestTimeout    time.Duration   `mapstructure:"request_timeout"`
}

// UniswapPool is one Uniswap V2 style pair contract.
type UniswapPool struct {
	Pair    string `mapstructure:"pair"`
	Address string `mapstructure:"address"`
}

// UniswapToken adds token metadata for pool pricing beyond the well-known set.
type UniswapToken struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// UniswapConfig holds Uniswap V2 pool configuration.
type UniswapConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Venue   string         `mapstructure:"venue"`
	Pools   []UniswapPool  `mapstructure:"pools"`
	Tokens  []UniswapToken `mapstructure:"tokens"`
}

// StaticLevel is one order-book level written as strings to keep decimals exact.
type StaticLevel struct {
	Price string `mapstructure:"price"`
	Size  string `mapstructure:"size"`
}

// StaticBook is a fixed order book.
type StaticBook struct {
	Venue string        `mapstructure:"venue"`
	Pair  string        `mapstructure:"pair"`
	Bids  []StaticLevel `mapstructure:"bids"`
	Asks  []StaticLevel `mapstructure:"asks"`
}

// StaticPool is a fixed constant-product pool.
type StaticPool struct {
	Venue string `mapstructure:"venue"`
	Pair  string `mapstructure:"pair"`
	R0    string `mapstructure:"r0"`
	R1    string `mapstructure:"r1"`
}

// StaticConfig holds liquidity that never changes, for offline runs and
// deterministic checks.
type StaticConfig struct {
	OrderBooks []StaticBook `mapstructure:"orderbooks"`
	Pools      []StaticPool `mapstructure:"pools"`
}

// Empty reports whether no static liquidity is configured.
func (c StaticConfig) Empty() bool {
	return len(c.OrderBooks) == 0 && len(c.Pools) == 0
}

// StrategyConfig is one pure-arbitrage template to evaluate every scan.
type StrategyConfig struct {
	Name       string `mapstructure:"name"`
	Venue0     string `mapstructure:"venue0"`
	Venue1     string `mapstructure:"venue1"`
	Token0     string `mapstructure:"token0"`
	Token1     string `mapstructure:"token1"`
	Middle     string `mapstructure:"middle"`
	AmountIn   string `mapstructure:"amount_in"`
	Fee0       string `mapstructure:"fee0"`
	Fee1       string `mapstructure:"fee1"`
	OrderType0 string `mapstructure:"order_type0"`
	OrderType1 string `mapstructure:"order_type1"`
}

// DisplayName returns Name or a generated label.
func (s StrategyConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s/%s %s_%s", s.Venue0, s.Venue1, s.Token0, s.Token1)
}

// ArbitrageConfig holds arbitrage detection configuration.
type ArbitrageConfig struct {
	Strategies   []StrategyConfig `mapstructure:"strategies"`
	ScanInterval time.Duration    `mapstructure:"scan_interval"`
	MinPNL       string           `mapstructure:"min_pnl"`
	MinPNLBps    float64          `mapstructure:"min_pnl_bps"`
	Verbose      bool             `mapstructure:"verbose"` // Print every scanned route in CLI mode
	TUIMode      bool             `mapstructure:"-"` // Set at runtime, not from config file
}

// MinPNLDecimal returns the minimum PNL as decimal.Decimal.
func (c *ArbitrageConfig) MinPNLDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.MinPNL)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MinPNLBpsDecimal returns the minimum PNL in basis points as decimal.Decimal.
func (c *ArbitrageConfig) MinPNLBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinPNLBps)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"` // otlp-grpc, otlp-http, zipkin, stdout
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("read config"), apperror.WithCause(err))
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unmarshal config"), apperror.WithCause(err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	_ = v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	_ = v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("app.health_port", "ARB_HEALTH_PORT")

	// Engine
	_ = v.BindEnv("engine.default_precision", "ARB_DEFAULT_PRECISION")

	// Ethereum
	_ = v.BindEnv("ethereum.websocket_url", "ARB_ETH_WS_URL", "ETH_WS_URL")
	_ = v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	_ = v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Binance
	_ = v.BindEnv("binance.enabled", "ARB_BINANCE_ENABLED")
	_ = v.BindEnv("binance.websocket_url", "ARB_BINANCE_WS_URL", "BINANCE_WS_URL")
	_ = v.BindEnv("binance.rest_url", "ARB_BINANCE_REST_URL", "BINANCE_REST_URL")

	// Uniswap
	_ = v.BindEnv("uniswap.enabled", "ARB_UNISWAP_ENABLED")

	// Arbitrage
	_ = v.BindEnv("arbitrage.scan_interval", "ARB_SCAN_INTERVAL")
	_ = v.BindEnv("arbitrage.min_pnl", "ARB_MIN_PNL")
	_ = v.BindEnv("arbitrage.min_pnl_bps", "ARB_MIN_PNL_BPS")
	_ = v.BindEnv("arbitrage.verbose", "ARB_VERBOSE")

	// Telemetry
	_ = v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.exporter", "ARB_OTEL_EXPORTER")
	_ = v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbitrage-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	v.SetDefault("engine.default_precision", 8)

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")
	v.SetDefault("ethereum.call_timeout", "5s")

	// Binance defaults
	v.SetDefault("binance.enabled", false)
	v.SetDefault("binance.venue", "binance")
	v.SetDefault("binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("binance.rest_url", "https://api.binance.com")
	v.SetDefault("binance.depth_limit", 20)
	v.SetDefault("binance.depth_speed_ms", 100)
	v.SetDefault("binance.stale_timeout", "5s")
	v.SetDefault("binance.requests_per_minute", 1200)
	v.SetDefault("binance.rest_fallback", true)
	v.SetDefault("binance.request_timeout", "10s")

	// Uniswap V2 defaults
	v.SetDefault("uniswap.enabled", false)
	v.SetDefault("uniswap.venue", "uniswap_v2")

	// Arbitrage defaults
	v.SetDefault("arbitrage.scan_interval", "2s")
	v.SetDefault("arbitrage.min_pnl", "0")
	v.SetDefault("arbitrage.min_pnl_bps", 0)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbitrage-engine")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Strategy tokens are checked against
// the pair grammar: non-empty and free of the "_" separator.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithContextf(format, args...))
	}

	if c.Engine.DefaultPrecision < 0 {
		return invalid("engine.default_precision must be >= 0, got %d", c.Engine.DefaultPrecision)
	}

	if c.Binance.Enabled {
		if len(c.Binance.Markets) == 0 {
			return invalid("binance.markets cannot be empty when binance is enabled")
		}
		for i, m := range c.Binance.Markets {
			if m.Symbol == "" || !validPair(m.Pair) {
				return invalid("binance.markets[%d]: symbol and pair BASE_QUOTE are required", i)
			}
		}
		if c.Binance.Venue == "" {
			return invalid("binance.venue cannot be empty")
		}
	}

	if c.Uniswap.Enabled {
		if !c.Ethereum.Enabled() {
			return invalid("uniswap requires ethereum.websocket_url or ethereum.http_url")
		}
		if len(c.Uniswap.Pools) == 0 {
			return invalid("uniswap.pools cannot be empty when uniswap is enabled")
		}
		for i, p := range c.Uniswap.Pools {
			if !validPair(p.Pair) {
				return invalid("uniswap.pools[%d]: invalid pair %q", i, p.Pair)
			}
			if !common.IsHexAddress(p.Address) {
				return invalid("uniswap.pools[%d]: invalid address %q", i, p.Address)
			}
		}
		for i, t := range c.Uniswap.Tokens {
			if t.Symbol == "" || !common.IsHexAddress(t.Address) {
				return invalid("uniswap.tokens[%d]: symbol and address are required", i)
			}
		}
	}

	for i, b := range c.Static.OrderBooks {
		if b.Venue == "" || !validPair(b.Pair) {
			return invalid("static.orderbooks[%d]: venue and pair BASE_QUOTE are required", i)
		}
	}
	for i, p := range c.Static.Pools {
		if p.Venue == "" || !validPair(p.Pair) {
			return invalid("static.pools[%d]: venue and pair BASE_QUOTE are required", i)
		}
	}

	for i, s := range c.Arbitrage.Strategies {
		if s.Venue0 == "" || s.Venue1 == "" {
			return invalid("arbitrage.strategies[%d]: venue0 and venue1 are required", i)
		}
		for _, tok := range []string{s.Token0, s.Token1} {
			if !validToken(tok) {
				return invalid("arbitrage.strategies[%d]: invalid token %q", i, tok)
			}
		}
		if s.Middle != "" && !validToken(s.Middle) {
			return invalid("arbitrage.strategies[%d]: invalid middle token %q", i, s.Middle)
		}
		if _, err := decimal.NewFromString(s.AmountIn); err != nil {
			return invalid("arbitrage.strategies[%d]: amount_in %q is not a decimal", i, s.AmountIn)
		}
	}

	if c.Arbitrage.MinPNL != "" {
		if _, err := decimal.NewFromString(c.Arbitrage.MinPNL); err != nil {
			return invalid("arbitrage.min_pnl %q is not a decimal", c.Arbitrage.MinPNL)
		}
	}
	if c.Arbitrage.ScanInterval <= 0 {
		return invalid("arbitrage.scan_interval must be positive")
	}

	return nil
}

func validToken(tok string) bool {
	return tok != "" && !strings.Contains(tok, "_")
}

func validPair(pair string) bool {
	parts := strings.Split(pair, "_")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
