package datasource

import (
	"errors"
	"fmt"

	"github.com/yourusername/pitwall/internal/models"
)

// Common error codes
const (
	ErrCodeNotFound          = "not_found"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeCircuitOpen       = "circuit_open"
	ErrCodeNotSupported      = "not_supported"
)

// Sentinel errors matched by DataSourceError.Is
var (
	// ErrUpstreamFetch matches every DataSourceError.
	ErrUpstreamFetch     = errors.New("upstream fetch failed")
	ErrNotFound          = models.ErrNotFound
	ErrNetworkError      = errors.New("network error")
	ErrServerError       = errors.New("server error")
	ErrInvalidData       = errors.New("invalid data format")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrCircuitOpen       = errors.New("circuit breaker open")
	ErrNotSupported      = errors.New("operation not supported by data source")
)

var codeSentinels = map[string]error{
	ErrCodeNotFound:          ErrNotFound,
	ErrCodeNetworkError:      ErrNetworkError,
	ErrCodeServerError:       ErrServerError,
	ErrCodeInvalidData:       ErrInvalidData,
	ErrCodeRateLimitExceeded: ErrRateLimitExceeded,
	ErrCodeCircuitOpen:       ErrCircuitOpen,
	ErrCodeNotSupported:      ErrNotSupported,
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string
	Err     error // Underlying error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Source, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Is matches ErrUpstreamFetch and the sentinel of the error code.
func (e *DataSourceError) Is(target error) bool {
	if target == ErrUpstreamFetch {
		return true
	}
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) *DataSourceError {
	return &DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
