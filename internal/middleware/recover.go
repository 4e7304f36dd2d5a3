package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"sim-api/internal/logger"
	"sim-api/internal/lookup"
)

// 文档注释：panic 兜底中间件
// 背景：处理链中任何未预期的 panic 都按 InternalError 返回 JSON（success=false，HTTP 500），进程继续服务。
// 约束：http.ErrAbortHandler 原样抛出，保持标准库中断连接的语义；已写出响应头时只记录日志。
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.FromContext(r.Context()).Error("http_panic", "panic", v, "stack", string(debug.Stack()))
			if tw.wrote {
				return
			}
			e := lookup.NewInternalError(fmt.Errorf("%v", v))
			w.Header().Set("content-type", "application/json; charset=utf-8")
			w.Header().Set("cache-control", "no-store")
			w.WriteHeader(e.Kind.Status())
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":   false,
				"error":     e.Message,
				"timestamp": lookup.FormatTimestamp(time.Now()),
			})
		}()
		next.ServeHTTP(tw, r)
	})
}

type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// Wrap：服务端统一中间件栈（访问日志在外层，panic 兜底在内层以便记录 500）
func Wrap(next http.Handler) http.Handler {
	return logger.AccessMiddleware(logger.L())(Recover(next))
}
