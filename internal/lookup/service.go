package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"sim-api/internal/logger"
)

// Upstream：第三方查询接口契约；非 200 不视为错误，由 Service 判定
type Upstream interface {
	Search(ctx context.Context, query string) (status int, body []byte, err error)
}

// Service：一次查询 = 一次上游调用 + 响应重组；无状态，可并发使用
type Service struct {
	up  Upstream
	now func() time.Time
}

func NewService(up Upstream) *Service {
	return &Service{up: up, now: time.Now}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 文档注释：执行查询并构造响应信封
// 背景：上游 200 时原样透传响应并尽力生成摘要；非 200、超时、其他失败分别映射为 Upstream/Timeout/Internal 错误。
// 约束：不重试、不缓存；超时由上游客户端的上下文期限控制。
func (s *Service) Search(ctx context.Context, q Query) (*Envelope, error) {
	l := logger.FromContext(ctx)
	l.Info("search_begin", "query", Mask(q.Digits), "type", q.Type)
	status, body, err := s.up.Search(ctx, q.Digits)
	if err != nil {
		if isTimeout(err) {
			l.Warn("search_timeout", "err", err)
			return nil, newTimeoutError(q.Digits, err)
		}
		l.Error("search_upstream_error", "err", err)
		return nil, NewInternalError(err)
	}
	if status != http.StatusOK {
		l.Warn("search_upstream_status", "status", status)
		return nil, newUpstreamError(q.Digits, status)
	}
	body = bytes.TrimPrefix(body, utf8BOM)
	if !json.Valid(body) {
		return nil, NewInternalError(errors.New("upstream returned invalid JSON"))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, NewInternalError(fmt.Errorf("decode upstream response: %w", err))
	}
	env := &Envelope{
		RequestInfo: RequestInfo{
			YourQuery:  q.Digits,
			QueryType:  q.Type,
			Timestamp:  FormatTimestamp(s.now()),
			StatusCode: status,
		},
		APIResponse: json.RawMessage(body),
	}
	if root, ok := doc.(map[string]any); ok && truthy(root["success"]) {
		if ok, reason := CheckShape(body); ok {
			env.Summary = Summarize(doc)
		} else {
			l.Debug("upstream_shape_mismatch", "reason", reason)
		}
	}
	n := 0
	if env.Summary != nil {
		n = env.Summary.TotalResults
	}
	l.Info("search_done", "results", n)
	return env, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
