package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureType
	}{
		{"nil", nil, FailureNone},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), FailureTimeout},
		{"关键字超时", errors.New("i/o timeout"), FailureTimeout},
		{"连接被拒绝", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, FailureConnection},
		{"DNS", &net.DNSError{Err: "no such host", Name: "x.invalid"}, FailureConnection},
		{"其他", errors.New("tls: bad certificate"), FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, FailureRateLimit, ClassifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, FailureServer, ClassifyStatus(http.StatusServiceUnavailable))
	assert.Equal(t, FailureHTTPStatus, ClassifyStatus(http.StatusNotFound))
}
