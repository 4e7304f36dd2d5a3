// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sim-api/internal/logger"
	"sim-api/internal/lookup"
	"sim-api/internal/metrics"
	"sim-api/internal/stats"
	"sim-api/internal/visitor"
)

// StatsWriteTimeout：统计写入的独立期限；响应已发出后仍需完成落库，服务端 WriteTimeout 需覆盖它
const StatsWriteTimeout = 3 * time.Second

// 构建并返回 API 路由
// 约束：rec 与 geo 可为 nil（统计关闭 / 不解析国家）；baseURL 为空时按请求推断示例地址
func BuildRoutes(svc *lookup.Service, rec *stats.Chain, geo *visitor.Resolver, baseURL string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newHomeDoc(publicBase(baseURL, r), time.Now()))
	})

	mux.HandleFunc("GET /test", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newTestDoc(publicBase(baseURL, r), time.Now()))
	})

	search := searchHandler(svc, rec, geo)
	mux.Handle("GET /search", search)
	mux.Handle("POST /search", search)

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if rec == nil || !rec.Enabled() {
			writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
			return
		}
		t, err := rec.Totals(r.Context())
		if err != nil {
			logger.FromContext(r.Context()).Error("stats_read_error", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "Statistics unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// 文档注释：/search 处理器
// 背景：校验 → 上游查询 → 返回信封；无论成败都记录指标与统计事件。
// 约束：响应先 Flush 给客户端，统计写入随后同步进行，使用脱离请求取消的上下文，失败只记日志。
func searchHandler(svc *lookup.Service, rec *stats.Chain, geo *visitor.Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		raw, err := readQuery(w, r)
		var q lookup.Query
		if err == nil {
			q, err = lookup.ParseQuery(raw)
		}
		var env *lookup.Envelope
		if err == nil {
			env, err = svc.Search(ctx, q)
		}
		if err != nil {
			writeError(w, r, err)
		} else {
			writeJSON(w, http.StatusOK, env)
		}
		dur := time.Since(start)

		ev := newEvent(q, env, err, dur)
		metrics.SearchRequestsTotal.WithLabelValues(ev.QueryType, string(ev.Outcome)).Inc()
		metrics.SearchDurationMs.Observe(float64(dur.Milliseconds()))
		if env != nil {
			metrics.SummaryResults.Observe(float64(ev.Results))
		}
		if rec == nil || !rec.Enabled() {
			return
		}
		// 统计写入前把响应推给客户端，慢后端不拖慢查询
		if err := http.NewResponseController(w).Flush(); err != nil {
			logger.FromContext(ctx).Debug("response_flush_error", "err", err)
		}
		if geo != nil {
			ev.Country = geo.Country(visitor.ClientIP(r))
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), StatsWriteTimeout)
		defer cancel()
		_ = rec.Record(sctx, ev)
	})
}

// newEvent：校验失败且没有可用号码时类型记为 "invalid"
func newEvent(q lookup.Query, env *lookup.Envelope, err error, dur time.Duration) stats.Event {
	ev := stats.Event{Outcome: stats.OutcomeOK, Duration: dur, At: time.Now()}
	digits, typ := q.Digits, string(q.Type)
	if err != nil {
		ev.Outcome = stats.Outcome(lookup.KindOf(err))
		var e *lookup.Error
		if errors.As(err, &e) {
			ev.UpstreamStatus = e.UpstreamStatus
			if digits == "" {
				digits = e.Query
			}
		}
		if ev.Outcome == stats.Outcome(lookup.KindValidation) {
			typ = "invalid"
		}
	}
	if typ == "" {
		typ = "invalid"
	}
	ev.MaskedQuery = lookup.Mask(digits)
	ev.QueryType = typ
	if env != nil {
		ev.UpstreamStatus = env.RequestInfo.StatusCode
		if env.Summary != nil {
			ev.Results = env.Summary.TotalResults
		}
	}
	return ev
}
