package errors

import "net/http"

// ErrorCode identifies a specific failure condition. Codes are grouped per
// module with a short prefix so that log and metric labels stay stable even
// when messages change.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	CodeInternal        ErrorCode = "COMMON_001"
	CodeBadRequest      ErrorCode = "COMMON_002"
	CodeValidation      ErrorCode = "COMMON_003"
	CodeNotFound        ErrorCode = "COMMON_004"
	CodeTooManyRequests ErrorCode = "COMMON_005"
	CodeTimeout         ErrorCode = "COMMON_006"
	CodeSerialization   ErrorCode = "COMMON_007"
	CodeUnavailable     ErrorCode = "COMMON_008"

	// CodeOK and CodeUnknown are sentinels for GetCode, never attached to
	// real errors.
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Radar request / panel codes
const (
	CodeInvalidTechnology ErrorCode = "RADAR_001"
	CodeInvalidYears      ErrorCode = "RADAR_002"
	// Panel codes never surface as HTTP statuses on the radar route; panels
	// degrade to their empty value plus a warning. They exist for logs and
	// failure metrics.
	CodePanelTimeout ErrorCode = "RADAR_003"
	CodePanelFailed  ErrorCode = "RADAR_004"
)

// Store codes (SQLite patent / project / resolver-cache stores)
const (
	CodeStoreUnavailable    ErrorCode = "STORE_001"
	CodeStoreQueryFailed    ErrorCode = "STORE_002"
	CodeStoreMigrationError ErrorCode = "STORE_003"
)

// Outbound API codes (OpenAIRE, Semantic Scholar, GLEIF)
const (
	CodeAPIRequestFailed ErrorCode = "API_001"
	CodeAPIAuthFailed    ErrorCode = "API_002"
	CodeAPIRateLimited   ErrorCode = "API_003"
	CodeAPICircuitOpen   ErrorCode = "API_004"
)

// Configuration codes
const (
	CodeInvalidConfig ErrorCode = "CONFIG_001"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes. Codes absent
// from the map resolve to 500.
var errorCodeHTTPStatus = map[ErrorCode]int{
	CodeInternal:        http.StatusInternalServerError,
	CodeBadRequest:      http.StatusBadRequest,
	CodeValidation:      http.StatusUnprocessableEntity,
	CodeNotFound:        http.StatusNotFound,
	CodeTooManyRequests: http.StatusTooManyRequests,
	CodeTimeout:         http.StatusGatewayTimeout,
	CodeSerialization:   http.StatusInternalServerError,
	CodeUnavailable:     http.StatusServiceUnavailable,

	CodeInvalidTechnology: http.StatusUnprocessableEntity,
	CodeInvalidYears:      http.StatusUnprocessableEntity,
	CodePanelTimeout:      http.StatusGatewayTimeout,
	CodePanelFailed:       http.StatusInternalServerError,

	CodeStoreUnavailable:    http.StatusServiceUnavailable,
	CodeStoreQueryFailed:    http.StatusInternalServerError,
	CodeStoreMigrationError: http.StatusInternalServerError,

	CodeAPIRequestFailed: http.StatusBadGateway,
	CodeAPIAuthFailed:    http.StatusBadGateway,
	CodeAPIRateLimited:   http.StatusTooManyRequests,
	CodeAPICircuitOpen:   http.StatusServiceUnavailable,

	CodeInvalidConfig: http.StatusInternalServerError,

	CodeOK: http.StatusOK,
}

// ErrorCodeHTTPStatus returns the HTTP status for a code, defaulting to 500.
func ErrorCodeHTTPStatus(code ErrorCode) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
