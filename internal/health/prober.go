package health

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultProbePath   = "/v1/models"
	defaultTimeout     = 30 * time.Second
	anthropicVersion   = "2023-06-01"
	userAgent          = "AITools-Switch/0.1"
	maxDrainBodyLength = 64 << 10
)

// Prober 单次连通性探测
// 失败是合法的探测结果而不是错误，因此不返回 error
type Prober interface {
	Probe(ctx context.Context, supplier *models.Supplier) ProbeResult
}

// ProberFunc 函数适配器，便于测试注入固定结果
type ProberFunc func(ctx context.Context, supplier *models.Supplier) ProbeResult

// Probe 实现 Prober
func (f ProberFunc) Probe(ctx context.Context, supplier *models.Supplier) ProbeResult {
	return f(ctx, supplier)
}

// TokenOpener 解密存储的认证令牌
type TokenOpener interface {
	Open(value string) (string, error)
}

// HTTPProber 基于 HTTP 的探测器
type HTTPProber struct {
	client         *http.Client
	limiter        *rate.Limiter
	probePath      string
	allowed        map[int]bool
	defaultTimeout time.Duration
	opener         TokenOpener
}

// ProberOption 配置 HTTPProber
type ProberOption func(*HTTPProber)

// WithRateLimit 限制每秒探测次数，rps <= 0 表示不限
func WithRateLimit(rps float64) ProberOption {
	return func(p *HTTPProber) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithProbePath 设置探测路径
func WithProbePath(path string) ProberOption {
	return func(p *HTTPProber) {
		if path != "" {
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			p.probePath = path
		}
	}
}

// WithAllowedStatus 额外视为成功的状态码（如 401 表示端点可达但令牌无效时仍算可用）
func WithAllowedStatus(codes ...int) ProberOption {
	return func(p *HTTPProber) {
		for _, c := range codes {
			p.allowed[c] = true
		}
	}
}

// WithDefaultTimeout 供应商未配置超时时使用
func WithDefaultTimeout(d time.Duration) ProberOption {
	return func(p *HTTPProber) {
		if d > 0 {
			p.defaultTimeout = d
		}
	}
}

// WithTokenOpener 设置令牌解密器
func WithTokenOpener(o TokenOpener) ProberOption {
	return func(p *HTTPProber) { p.opener = o }
}

// NewHTTPProber 创建 HTTP 探测器
func NewHTTPProber(opts ...ProberOption) *HTTPProber {
	p := &HTTPProber{
		client: &http.Client{
			// 3xx 直接作为结果，不跟随跳转
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		probePath:      defaultProbePath,
		allowed:        make(map[int]bool),
		defaultTimeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe 在供应商配置的超时内请求一次探测端点
func (p *HTTPProber) Probe(ctx context.Context, supplier *models.Supplier) ProbeResult {
	timeout := p.defaultTimeout
	if supplier.TimeoutMs > 0 {
		timeout = time.Duration(supplier.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Failed(FailureRateLimit, "等待探测配额失败: %v", err)
		}
	}

	token := supplier.AuthToken
	if p.opener != nil {
		opened, err := p.opener.Open(token)
		if err != nil {
			return Failed(FailureUnknown, "解密认证令牌失败: %v", err)
		}
		token = opened
	}

	url := strings.TrimRight(supplier.BaseURL, "/") + p.probePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed(FailureUnknown, "创建请求失败: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	if supplier.Category == models.CategoryClaude {
		req.Header.Set("x-api-key", token)
		req.Header.Set("anthropic-version", anthropicVersion)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		result := Failed(ClassifyError(err), "请求失败: %v", err)
		result.ResponseTimeMs = &elapsed
		p.logFailure(supplier, result)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBodyLength))

	if (resp.StatusCode >= 200 && resp.StatusCode < 400) || p.allowed[resp.StatusCode] {
		result := Succeeded(elapsed)
		result.StatusCode = resp.StatusCode
		return result
	}

	result := Failed(ClassifyStatus(resp.StatusCode), "HTTP %d", resp.StatusCode)
	result.ResponseTimeMs = &elapsed
	result.StatusCode = resp.StatusCode
	p.logFailure(supplier, result)
	return result
}

func (p *HTTPProber) logFailure(supplier *models.Supplier, r ProbeResult) {
	logrus.WithFields(logrus.Fields{
		"supplier_id":  supplier.ID,
		"category":     supplier.Category,
		"failure_type": r.FailureType,
	}).Debugf("⚠️ 探测失败: %s", *r.Error)
}
