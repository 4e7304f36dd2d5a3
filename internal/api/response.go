package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sim-api/internal/logger"
	"sim-api/internal/lookup"
)

// exampleQuery：缺少查询时回显的示例
var exampleQuery = map[string]string{"query": "3359736848"}

// 文档注释：错误响应结构
// 约束：字段按错误分类出现；your_query 在长度校验失败时即使为空串也输出。
type errorBody struct {
	Success        bool              `json:"success"`
	Error          string            `json:"error"`
	Example        map[string]string `json:"example,omitempty"`
	YourQuery      *string           `json:"your_query,omitempty"`
	Length         *int              `json:"length,omitempty"`
	UpstreamStatus int               `json:"upstream_status,omitempty"`
	Timestamp      string            `json:"timestamp,omitempty"`
}

// writeJSON：先编码再写出并带 Content-Length，客户端读完响应体即可结束，不等待处理器返回
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b, _ = json.Marshal(map[string]any{"success": false, "error": lookup.NewInternalError(err).Message})
	}
	b = append(b, '\n')
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.Header().Set("content-length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// asLookupError：非本域错误统一包装为内部错误
func asLookupError(err error) *lookup.Error {
	var e *lookup.Error
	if errors.As(err, &e) {
		return e
	}
	return lookup.NewInternalError(err)
}

func newErrorBody(e *lookup.Error, now time.Time) errorBody {
	b := errorBody{Success: false, Error: e.Message}
	switch e.Kind {
	case lookup.KindValidation:
		if e.HasLength() {
			q, n := e.Query, e.Length
			b.YourQuery, b.Length = &q, &n
		} else {
			b.Example = exampleQuery
		}
	case lookup.KindUpstream, lookup.KindTimeout:
		q := e.Query
		b.YourQuery = &q
		b.UpstreamStatus = e.UpstreamStatus
		b.Timestamp = lookup.FormatTimestamp(now)
	default:
		b.Timestamp = lookup.FormatTimestamp(now)
	}
	return b
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := asLookupError(err)
	if e.Kind == lookup.KindInternal {
		logger.FromContext(r.Context()).Error("search_internal_error", "err", err)
	}
	writeJSON(w, e.Kind.Status(), newErrorBody(e, time.Now()))
}
