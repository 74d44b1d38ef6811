package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// ErrNotFound means the node answered but the account or transaction does
// not exist. It is terminal and never retried.
var ErrNotFound = errors.New("not found")

// ErrorType buckets a failed call the way a human reading a report would.
type ErrorType string

const (
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeConnection  ErrorType = "connection"
	ErrorTypeNodeBehind  ErrorType = "node_behind"
	ErrorTypeParseError  ErrorType = "parse_error"
	ErrorTypeRejected    ErrorType = "rejected"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Transient reports whether a failure of this type is worth retrying.
func (t ErrorType) Transient() bool {
	switch t {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeServerError,
		ErrorTypeConnection, ErrorTypeNodeBehind:
		return true
	}
	return false
}

// NetworkError is a failed exchange with the node after retries, if any.
type NetworkError struct {
	Method     string
	Type       ErrorType
	StatusCode int // HTTP status, 0 when none was received
	Code       int // JSON-RPC error code, 0 when none was returned
	Attempts   int
	Err        error
}

func (e *NetworkError) Error() string {
	kind := "terminal"
	if e.Transient() {
		kind = "transient"
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: %s %s error after %d attempts: %v", e.Method, kind, e.Type, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s %s error: %v", e.Method, kind, e.Type, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Transient reports whether the underlying failure was retryable. A
// transient NetworkError returned to a caller means retries ran out.
func (e *NetworkError) Transient() bool { return e.Type.Transient() }

// StatusError is a non-200 HTTP reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// parseError marks a reply whose body could not be decoded.
type parseError struct{ err error }

func (e *parseError) Error() string { return "invalid JSON response: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// Node error codes that clear up on their own.
const (
	codeBlockNotAvailable     = -32004
	codeNodeUnhealthy         = -32005
	codeBlockStatusNotYet     = -32014
	codeMinContextSlotMissing = -32016
	codeInternal              = -32603
)

// Classify maps an error from one attempt to its ErrorType.
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusTooManyRequests:
			return ErrorTypeRateLimit
		case status.StatusCode == http.StatusRequestTimeout || status.StatusCode == http.StatusGatewayTimeout:
			return ErrorTypeTimeout
		case status.StatusCode >= 500:
			return ErrorTypeServerError
		}
		return ErrorTypeRejected
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeNodeUnhealthy, codeMinContextSlotMissing, codeBlockStatusNotYet, codeBlockNotAvailable:
			return ErrorTypeNodeBehind
		case codeInternal:
			return ErrorTypeServerError
		case 429:
			return ErrorTypeRateLimit
		}
		return ErrorTypeRejected
	}

	var perr *parseError
	if errors.As(err, &perr) {
		return ErrorTypeParseError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ErrorTypeConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorTypeConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeConnection
	}
	return ErrorTypeUnknown
}
