package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// FailureType 探测失败类型
type FailureType string

const (
	FailureNone       FailureType = ""
	FailureTimeout    FailureType = "timeout"
	FailureConnection FailureType = "connection"
	FailureServer     FailureType = "server_error"
	FailureRateLimit  FailureType = "rate_limit"
	FailureHTTPStatus FailureType = "http_status"
	FailureUnknown    FailureType = "unknown"
)

var (
	timeoutKeywords    = []string{"timeout", "deadline exceeded", "timed out"}
	connectionKeywords = []string{
		"connection refused", "connection reset", "connection aborted",
		"network is unreachable", "host is unreachable",
		"no route to host", "broken pipe", "dial",
	}
)

// ClassifyError 根据传输层错误确定失败类型
// 超时优先于连接错误判断
func ClassifyError(err error) FailureType {
	if err == nil {
		return FailureNone
	}
	if isTimeoutError(err) {
		return FailureTimeout
	}
	if isConnectionError(err) {
		return FailureConnection
	}
	return FailureUnknown
}

// ClassifyStatus 根据 HTTP 状态码确定失败类型
func ClassifyStatus(code int) FailureType {
	switch {
	case code == http.StatusTooManyRequests:
		return FailureRateLimit
	case code >= 500 && code < 600:
		return FailureServer
	default:
		return FailureHTTPStatus
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return containsAny(strings.ToLower(err.Error()), timeoutKeywords)
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return containsAny(strings.ToLower(err.Error()), connectionKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
