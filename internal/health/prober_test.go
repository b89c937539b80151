package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSupplier(baseURL string, category models.Category) *models.Supplier {
	return &models.Supplier{
		ID:        1,
		Category:  category,
		Name:      "test",
		BaseURL:   baseURL,
		AuthToken: "sk-test",
		TimeoutMs: 2000,
	}
}

func TestHTTPProber_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	result := NewHTTPProber().Probe(context.Background(), testSupplier(server.URL+"/", models.CategoryClaude))

	assert.True(t, result.Success)
	require.NotNil(t, result.ResponseTimeMs)
	assert.GreaterOrEqual(t, *result.ResponseTimeMs, int64(0))
	assert.Nil(t, result.Error)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestHTTPProber_CodexOmitsAnthropicHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"))
		assert.Empty(t, r.Header.Get("anthropic-version"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
	}))
	defer server.Close()

	result := NewHTTPProber().Probe(context.Background(), testSupplier(server.URL, models.CategoryCodex))
	assert.True(t, result.Success)
}

func TestHTTPProber_RedirectIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://127.0.0.1:1/unreachable", http.StatusFound)
	}))
	defer server.Close()

	result := NewHTTPProber().Probe(context.Background(), testSupplier(server.URL, models.CategoryClaude))
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusFound, result.StatusCode)
}

func TestHTTPProber_StatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		allowed []int
		success bool
		ft      FailureType
	}{
		{"服务端错误", http.StatusBadGateway, nil, false, FailureServer},
		{"限流", http.StatusTooManyRequests, nil, false, FailureRateLimit},
		{"未授权", http.StatusUnauthorized, nil, false, FailureHTTPStatus},
		{"允许列表", http.StatusUnauthorized, []int{401}, true, FailureNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			p := NewHTTPProber(WithAllowedStatus(tt.allowed...))
			result := p.Probe(context.Background(), testSupplier(server.URL, models.CategoryClaude))

			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.ft, result.FailureType)
			assert.Equal(t, tt.status, result.StatusCode)
			if !tt.success {
				require.NotNil(t, result.Error)
				assert.Contains(t, *result.Error, "HTTP")
			}
		})
	}
}

func TestHTTPProber_TimeoutResolvesToFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	s := testSupplier(server.URL, models.CategoryClaude)
	s.TimeoutMs = 50

	start := time.Now()
	result := NewHTTPProber().Probe(context.Background(), s)

	assert.False(t, result.Success)
	assert.Equal(t, FailureTimeout, result.FailureType)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPProber_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	result := NewHTTPProber().Probe(context.Background(), testSupplier(addr, models.CategoryCodex))

	assert.False(t, result.Success)
	assert.Equal(t, FailureConnection, result.FailureType)
	require.NotNil(t, result.Error)
}

func TestHTTPProber_CustomPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	result := NewHTTPProber(WithProbePath("health")).Probe(context.Background(), testSupplier(server.URL, models.CategoryCodex))
	assert.True(t, result.Success)
}

type fakeOpener struct{}

func (fakeOpener) Open(v string) (string, error) { return "opened-" + v, nil }

func TestHTTPProber_TokenOpener(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer opened-sk-test", r.Header.Get("Authorization"))
	}))
	defer server.Close()

	result := NewHTTPProber(WithTokenOpener(fakeOpener{})).Probe(context.Background(), testSupplier(server.URL, models.CategoryCodex))
	assert.True(t, result.Success)
}

func TestHTTPProber_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	p := NewHTTPProber(WithRateLimit(1000))
	for i := 0; i < 3; i++ {
		assert.True(t, p.Probe(context.Background(), testSupplier(server.URL, models.CategoryCodex)).Success)
	}
}
