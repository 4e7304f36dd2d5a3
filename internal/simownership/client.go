// 包 simownership：第三方 SIM/CNIC 查询表单接口的客户端
package simownership

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sim-api/internal/logger"
	"sim-api/internal/metrics"
)

const (
	DefaultEndpoint = "https://simownership.com/wp-admin/admin-ajax.php"
	DefaultTimeout  = 15 * time.Second

	siteOrigin  = "https://simownership.com"
	siteReferer = "https://simownership.com/search/"

	// 上游响应体上限
	maxBodyBytes = 8 << 20
)

// 固定请求头：模拟站点前端的 XHR 表单提交
var fixedHeaders = map[string]string{
	"User-Agent":       "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36",
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"X-Requested-With": "XMLHttpRequest",
	"Origin":           siteOrigin,
	"Referer":          siteReferer,
	"Content-Type":     "application/x-www-form-urlencoded; charset=UTF-8",
}

// FormPayload：构造 Elementor 表单提交字段，仅 form_fields[search] 随查询变化
func FormPayload(query string) url.Values {
	v := url.Values{}
	v.Set("post_id", "413")
	v.Set("form_id", "5e17544")
	v.Set("referer_title", "Search SIM and CNIC Details")
	v.Set("queried_id", "413")
	v.Set("form_fields[search]", query)
	v.Set("action", "elementor_pro_forms_send_form")
	v.Set("referrer", siteReferer)
	return v
}

// 文档注释：上游客户端
// 约束：超时通过请求上下文施加，覆盖连接、写入与读取响应体全过程；client 可共享。
type Client struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	maxBody  int64
}

// ErrResponseTooLarge：上游响应体超过上限；不截断，避免把半截 JSON 当作格式错误
var ErrResponseTooLarge = errors.New("upstream response too large")

// NewClient：endpoint 为空使用默认地址；timeout<=0 使用 15s；client 为空使用默认客户端
func NewClient(endpoint string, timeout time.Duration, client *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{endpoint: endpoint, timeout: timeout, client: client, maxBody: maxBodyBytes}
}

func (c *Client) Endpoint() string       { return c.endpoint }
func (c *Client) Timeout() time.Duration { return c.timeout }

// 文档注释：提交一次查询
// 返回：HTTP 状态码与完整响应体；非 200 不视为错误，交由上层分类。
// 异常：网络错误、超时、读取失败时返回 error（超时错误满足 context.DeadlineExceeded 或 net.Error.Timeout）。
func (c *Client) Search(ctx context.Context, query string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(FormPayload(query).Encode()))
	if err != nil {
		return 0, nil, err
	}
	for k, v := range fixedHeaders {
		req.Header.Set(k, v)
	}
	l := logger.FromContext(ctx)
	t0 := time.Now()
	metrics.UpstreamRequestsTotal.Inc()
	l.Debug("upstream_req", "endpoint", c.endpoint)
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(failReason(err)).Inc()
		l.Error("upstream_http_error", "err", err)
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err == nil && int64(len(body)) > c.maxBody {
		body, err = nil, ErrResponseTooLarge
	}
	dur := time.Since(t0).Milliseconds()
	metrics.UpstreamDurationMs.Observe(float64(dur))
	metrics.UpstreamStatusTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		metrics.UpstreamFailTotal.WithLabelValues(failReason(err)).Inc()
		l.Error("upstream_read_error", "err", err, "status", resp.StatusCode)
		return resp.StatusCode, nil, err
	}
	l.Debug("upstream_resp", "status", resp.StatusCode, "bytes", len(body), "duration_ms", dur)
	return resp.StatusCode, body, nil
}

func failReason(err error) string {
	if errors.Is(err, ErrResponseTooLarge) {
		return "too_large"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	return "transport"
}
