package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeDuplicateReverseLiquidity: "Liquidity already registered for the reverse pair",
	CodeNoLiquidityFound:          "No liquidity found for venue and pair",
	CodeInvalidPair:               "Invalid pair identifier",

	CodeInvalidReserveOrAmount: "Reserves and amount must be positive",
	CodeInvalidFee:             "Fee must be in [0, 1)",
	CodeLengthMismatch:         "Route parameter lengths do not match",
	CodeInvalidRoute:           "Route must contain at least two tokens",
	CodeUnknownOrderType:       "Unknown order type",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",
	CodeWebSocketNotConnected:    "WebSocket is not connected",

	CodeBinanceConnectionFailed: "Failed to connect to Binance API",
	CodeBinanceAPIError:         "Binance API error",
	CodeOrderbookFetchFailed:    "Failed to fetch orderbook",
	CodeInvalidOrderbook:        "Invalid orderbook data",

	CodeReservesFetchFailed: "Failed to fetch pool reserves",
	CodeContractCallFailed:  "Smart contract call failed",

	CodeCircuitOpen: "Circuit breaker is open",
}
