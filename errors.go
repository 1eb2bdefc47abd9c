package safegmx

import "fmt"

// ErrorCode is the closed set of codes this system defines. No other
// value may be surfaced to a caller.
type ErrorCode string

const (
	CodeInvalidSignalFormat          ErrorCode = "INVALID_SIGNAL_FORMAT"
	CodeInvalidPriceLevels           ErrorCode = "INVALID_PRICE_LEVELS"
	CodeSignalExpired                ErrorCode = "SIGNAL_EXPIRED"
	CodeTokenNotFound                ErrorCode = "TOKEN_NOT_FOUND"
	CodeUnsupportedNetwork           ErrorCode = "UNSUPPORTED_NETWORK"
	CodeSafeNotDeployed              ErrorCode = "SAFE_NOT_DEPLOYED"
	CodeSafeInvalidConfiguration     ErrorCode = "SAFE_INVALID_CONFIGURATION"
	CodeSafeInsufficientBalance      ErrorCode = "SAFE_INSUFFICIENT_BALANCE"
	CodeInsufficientStablecoinBalance ErrorCode = "INSUFFICIENT_STABLECOIN_BALANCE"
	CodeInvalidPositionPercentage    ErrorCode = "INVALID_POSITION_PERCENTAGE"
	CodePositionSizeTooSmall         ErrorCode = "POSITION_SIZE_TOO_SMALL"
	CodePositionSizeTooLarge         ErrorCode = "POSITION_SIZE_TOO_LARGE"
	CodeSwapQuoteFailed              ErrorCode = "SWAP_QUOTE_FAILED"
	CodeSwapExecutionFailed          ErrorCode = "SWAP_EXECUTION_FAILED"
	CodeInsufficientLiquidity        ErrorCode = "INSUFFICIENT_LIQUIDITY"
	CodeSlippageTooHigh              ErrorCode = "SLIPPAGE_TOO_HIGH"
	CodeRPCConnectionFailed          ErrorCode = "RPC_CONNECTION_FAILED"
	CodeNetworkCongestion            ErrorCode = "NETWORK_CONGESTION"
	CodeTransactionTimeout           ErrorCode = "TRANSACTION_TIMEOUT"
	CodePriceDataUnavailable         ErrorCode = "PRICE_DATA_UNAVAILABLE"
	CodeAPIRateLimited               ErrorCode = "API_RATE_LIMITED"
	CodeConfigurationError           ErrorCode = "CONFIGURATION_ERROR"
	CodeSystemShutdown               ErrorCode = "SYSTEM_SHUTDOWN"
	CodeUnknownError                 ErrorCode = "UNKNOWN_ERROR"
)

// Kind classifies an error for routing/alerting purposes.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNetwork           Kind = "network"
	KindSystem            Kind = "system"
	KindAuth              Kind = "auth"
)

// Severity is an error's operational urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Context is the compact, non-sensitive summary attached to every
// surfaced error.
type Context struct {
	Service       string
	Operation     string
	TradeId       string
	SignalId      string
	WalletAddress string
	NetworkKey    NetworkKey
}

// TradeError is the single error type every component returns. The
// inner error, if any, is only ever logged, never rendered to a caller.
type TradeError struct {
	Code           ErrorCode
	Kind           Kind
	Severity       Severity
	Retriable      bool
	Actionable     bool
	Recommendation string
	Context        Context
	inner          error
}

func (e *TradeError) Error() string {
	if e.inner != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Recommendation, e.inner)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Recommendation)
}

func (e *TradeError) Unwrap() error { return e.inner }

// codeDefaults encodes the table so call
// sites only have to name a code and a message; the rest is derived.
var codeDefaults = map[ErrorCode]struct {
	kind      Kind
	severity  Severity
	retriable bool
}{
	CodeInvalidSignalFormat:           {KindValidation, SeverityLow, false},
	CodeInvalidPriceLevels:            {KindValidation, SeverityLow, false},
	CodeSignalExpired:                 {KindValidation, SeverityLow, false},
	CodeTokenNotFound:                 {KindNotFound, SeverityMedium, false},
	CodeUnsupportedNetwork:            {KindValidation, SeverityMedium, false},
	CodeSafeNotDeployed:               {KindNotFound, SeverityMedium, false},
	CodeSafeInvalidConfiguration:      {KindValidation, SeverityHigh, false},
	CodeSafeInsufficientBalance:       {KindInsufficientFunds, SeverityMedium, false},
	CodeInsufficientStablecoinBalance: {KindInsufficientFunds, SeverityMedium, false},
	CodeInvalidPositionPercentage:     {KindValidation, SeverityLow, false},
	CodePositionSizeTooSmall:          {KindValidation, SeverityLow, false},
	CodePositionSizeTooLarge:          {KindValidation, SeverityLow, false},
	CodeSwapQuoteFailed:               {KindNetwork, SeverityMedium, true},
	CodeSwapExecutionFailed:           {KindSystem, SeverityHigh, false},
	CodeInsufficientLiquidity:         {KindNetwork, SeverityMedium, false},
	CodeSlippageTooHigh:               {KindValidation, SeverityMedium, false},
	CodeRPCConnectionFailed:           {KindNetwork, SeverityHigh, true},
	CodeNetworkCongestion:             {KindNetwork, SeverityLow, true},
	CodeTransactionTimeout:            {KindNetwork, SeverityHigh, true},
	CodePriceDataUnavailable:          {KindNetwork, SeverityMedium, true},
	CodeAPIRateLimited:                {KindSystem, SeverityLow, true},
	CodeConfigurationError:            {KindSystem, SeverityCritical, false},
	CodeSystemShutdown:                {KindSystem, SeverityCritical, false},
	CodeUnknownError:                  {KindSystem, SeverityMedium, false},
}

// NewError is the exported constructor internal/* collaborator
// packages use to build TradeErrors for the codes they own, filling
// kind/severity/retriable from code's entry in the table. Pass
// an empty Kind to take the table's default.
func NewError(code ErrorCode, kind Kind, recommendation string, ctx Context) *TradeError {
	return newError(code, kind, recommendation, ctx)
}

// WrapError is NewError plus an inner error, only ever logged, never
// rendered to a caller.
func WrapError(code ErrorCode, kind Kind, recommendation string, ctx Context, inner error) *TradeError {
	return wrapError(code, kind, recommendation, ctx, inner)
}

// newError builds a TradeError, filling kind/severity/retriable from
// code's entry in the table.
func newError(code ErrorCode, kind Kind, recommendation string, ctx Context) *TradeError {
	d, ok := codeDefaults[code]
	if !ok {
		d = codeDefaults[CodeUnknownError]
	}
	if kind == "" {
		kind = d.kind
	}
	return &TradeError{
		Code:           code,
		Kind:           kind,
		Severity:       d.severity,
		Retriable:      d.retriable,
		Actionable:     recommendation != "",
		Recommendation: recommendation,
		Context:        ctx,
	}
}

// wrapError attaches inner (only ever logged, never rendered) to a
// TradeError built the same way as newError.
func wrapError(code ErrorCode, kind Kind, recommendation string, ctx Context, inner error) *TradeError {
	e := newError(code, kind, recommendation, ctx)
	e.inner = inner
	return e
}
