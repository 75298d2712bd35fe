package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Pricing engine error codes
const (
	// Liquidity registry
	CodeDuplicateReverseLiquidity Code = "DUPLICATE_REVERSE_LIQUIDITY"
	CodeNoLiquidityFound          Code = "NO_LIQUIDITY_FOUND"
	CodeInvalidPair               Code = "INVALID_PAIR"

	// Hop and route pricing
	CodeInvalidReserveOrAmount Code = "INVALID_RESERVE_OR_AMOUNT"
	CodeInvalidFee             Code = "INVALID_FEE"
	CodeLengthMismatch         Code = "LENGTH_MISMATCH"
	CodeInvalidRoute           Code = "INVALID_ROUTE"
	CodeUnknownOrderType       Code = "UNKNOWN_ORDER_TYPE"
)

// Feed error codes
const (
	// Blockchain/Ethereum
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"

	// WebSocket
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
	CodeWebSocketNotConnected    Code = "WEBSOCKET_NOT_CONNECTED"

	// Binance order books
	CodeBinanceConnectionFailed Code = "BINANCE_CONNECTION_FAILED"
	CodeBinanceAPIError         Code = "BINANCE_API_ERROR"
	CodeOrderbookFetchFailed    Code = "ORDERBOOK_FETCH_FAILED"
	CodeInvalidOrderbook        Code = "INVALID_ORDERBOOK"

	// Uniswap V2 reserves
	CodeReservesFetchFailed Code = "RESERVES_FETCH_FAILED"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"

	// Circuit breaker
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
