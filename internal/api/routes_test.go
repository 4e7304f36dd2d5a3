package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sim-api/internal/lookup"
	"sim-api/internal/simownership"
	"sim-api/internal/stats"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamOK = `{"success": true, "data": {"data": {"results": [
  {"n": "3359736848", "name": "Ali Khan", "cnic": "2150952917167", "network": "Jazz"}
]}}}`

// newUpstream：模拟上游，status 为 0 时阻塞直到请求被取消
func newUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == 0 {
			<-r.Context().Done()
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newMux(t *testing.T, up *httptest.Server, timeout time.Duration, rec *stats.Chain) *http.ServeMux {
	t.Helper()
	svc := lookup.NewService(simownership.NewClient(up.URL, timeout, nil))
	return BuildRoutes(svc, rec, nil, "")
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var body map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	}
	return rr, body
}

func TestHomeAndTestDocs(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)

	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "http://api.local/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Pakistan Number Info API", body["api_name"])
	assert.Equal(t, "1.0", body["version"])
	assert.Equal(t, "active", body["status"])
	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, endpoints, "/search")
	assert.Contains(t, endpoints, "/search?query=number")
	assert.Len(t, body["supported_queries"], 3)
	assert.NotEmpty(t, body["timestamp"])

	rr, body = do(t, mux, httptest.NewRequest(http.MethodGet, "http://api.local/test", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "API is working!", body["message"])
	assert.Equal(t, []any{
		"http://api.local/search?query=3359736848",
		"http://api.local/search?query=2150952917167",
	}, body["sample_queries"])
	post, ok := body["sample_post_request"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, post["curl_command"], "http://api.local/search")
}

func TestUnknownPathAndMethod(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Header().Get("Allow"), "POST")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSearchSuccess(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)

	reqs := map[string]*http.Request{
		"get": httptest.NewRequest(http.MethodGet, "/search?query="+url.QueryEscape("0335 973-6848"), nil),
		"json": func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": "0335 973-6848"}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}(),
		"form": func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("query=0335+973-6848"))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}(),
	}
	for name, req := range reqs {
		t.Run(name, func(t *testing.T) {
			rr, body := do(t, mux, req)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, "no-store", rr.Header().Get("cache-control"))

			info := body["request_info"].(map[string]any)
			assert.Equal(t, "03359736848", info["your_query"])
			assert.Equal(t, "mobile", info["query_type"])
			assert.Equal(t, float64(200), info["status_code"])
			assert.Equal(t, true, body["api_response"].(map[string]any)["success"])

			summary := body["summary"].(map[string]any)
			assert.Equal(t, float64(1), summary["total_results"])
			rec := summary["results"].([]any)[0].(map[string]any)
			assert.Equal(t, "3359736848", rec["mobile_number"])
			assert.Equal(t, "N/A", rec["address"])
		})
	}
}

func TestSearchNumericJSONQuery(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)
	post := func(raw string) (*httptest.ResponseRecorder, map[string]any) {
		r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": `+raw+`}`))
		r.Header.Set("Content-Type", "application/json")
		return do(t, mux, r)
	}

	accepted := []struct {
		raw, query, typ string
	}{
		{"2150952917167", "2150952917167", "cnic"},
		{"2.150952917167e12", "2150952917167", "cnic"},
		{"3359736848.0", "3359736848", "mobile"},
		{"33597368.48E2", "3359736848", "mobile"},
	}
	for _, tt := range accepted {
		t.Run(tt.raw, func(t *testing.T) {
			rr, body := post(tt.raw)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			info := body["request_info"].(map[string]any)
			assert.Equal(t, tt.query, info["your_query"])
			assert.Equal(t, tt.typ, info["query_type"])
		})
	}

	for _, raw := range []string{"3359736848.5", "-3359736848", "1e400", "2.15e-3"} {
		t.Run(raw, func(t *testing.T) {
			rr, body := post(raw)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, lookup.MsgQueryType, body["error"])
		})
	}
}

func TestNumberQuery(t *testing.T) {
	q, ok := numberQuery(json.Number("3.359736848e9"))
	assert.True(t, ok)
	assert.Equal(t, "3359736848", q)

	_, ok = numberQuery(json.Number("1e999999999"))
	assert.False(t, ok)
}

func TestSearchValidation(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)

	t.Run("missing query", func(t *testing.T) {
		rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/search", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, lookup.MsgQueryRequired, body["error"])
		assert.Equal(t, map[string]any{"query": "3359736848"}, body["example"])
	})

	t.Run("too short", func(t *testing.T) {
		rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=12345", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, lookup.MsgInvalidLength, body["error"])
		assert.Equal(t, "12345", body["your_query"])
		assert.Equal(t, float64(5), body["length"])
	})

	t.Run("no digits", func(t *testing.T) {
		_, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=abc", nil))
		assert.Equal(t, "", body["your_query"])
		assert.Equal(t, float64(0), body["length"])
	})

	t.Run("invalid json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":`))
		r.Header.Set("Content-Type", "application/json")
		rr, body := do(t, mux, r)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, lookup.MsgInvalidJSON, body["error"])
	})

	t.Run("query of wrong type", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": ["3359736848"]}`))
		r.Header.Set("Content-Type", "application/vnd.api+json")
		rr, body := do(t, mux, r)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, lookup.MsgQueryType, body["error"])
	})

	t.Run("post ignores url query", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/search?query=3359736848", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "application/json")
		_, body := do(t, mux, r)
		assert.Equal(t, lookup.MsgQueryRequired, body["error"])
	})
}

func TestSearchUpstreamError(t *testing.T) {
	mux := newMux(t, newUpstream(t, http.StatusServiceUnavailable, "busy"), time.Second, nil)
	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=3359736848", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "External API error: 503", body["error"])
	assert.Equal(t, "3359736848", body["your_query"])
	assert.Equal(t, float64(503), body["upstream_status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestSearchTimeout(t *testing.T) {
	mux := newMux(t, newUpstream(t, 0, ""), 100*time.Millisecond, nil)
	start := time.Now()
	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=3359736848", nil))
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, lookup.MsgTimeout, body["error"])
	assert.Equal(t, "3359736848", body["your_query"])
}

func TestSearchInvalidUpstreamJSON(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, "<html>captcha</html>"), time.Second, nil)
	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=3359736848", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, false, body["success"])
	assert.True(t, strings.HasPrefix(body["error"].(string), "Internal server error"))
	assert.NotContains(t, body, "your_query")
}

func TestStatsDisabled(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)
	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"enabled": false}, body)
}

func TestStatsRecordedInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, stats.NewChain(stats.NewRedis(rc)))

	do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=3359736848", nil))
	do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=2150952917167", nil))
	do(t, mux, httptest.NewRequest(http.MethodGet, "/search?query=12", nil))

	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(3), body["today"])
	assert.Equal(t, map[string]any{"mobile": float64(1), "cnic": float64(1), "invalid": float64(1)}, body["by_type"])
	assert.Equal(t, map[string]any{"ok": float64(2), "validation": float64(1)}, body["by_outcome"])

	mr.SetError("READONLY")
	rr, body = do(t, mux, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "Statistics unavailable", body["error"])
}

func TestHealthz(t *testing.T) {
	mux := newMux(t, newUpstream(t, 200, upstreamOK), time.Second, nil)
	rr, body := do(t, mux, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestPublicBase(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://sim.example/", nil)
	assert.Equal(t, "http://sim.example", publicBase("", r))
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://sim.example", publicBase("", r))
	assert.Equal(t, "https://api.example", publicBase("https://api.example/", r))
}

// blockingRecorder：写入一直阻塞到上下文结束或测试释放
type blockingRecorder struct {
	release chan struct{}
	done    chan struct{}
}

func (b *blockingRecorder) Name() string { return "blocking" }

func (b *blockingRecorder) Record(ctx context.Context, _ stats.Event) error {
	defer close(b.done)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return ctx.Err()
}

func (b *blockingRecorder) Totals(context.Context) (*stats.Totals, error) { return &stats.Totals{}, nil }

func TestSlowStatsDoNotDelayResponse(t *testing.T) {
	for name, up := range map[string]*httptest.Server{
		"ok":      newUpstream(t, 200, upstreamOK),
		"timeout": newUpstream(t, 0, ""),
	} {
		t.Run(name, func(t *testing.T) {
			rec := &blockingRecorder{release: make(chan struct{}), done: make(chan struct{})}
			srv := httptest.NewServer(newMux(t, up, 100*time.Millisecond, stats.NewChain(rec)))
			defer srv.Close()
			defer close(rec.release)

			start := time.Now()
			resp, err := srv.Client().Get(srv.URL + "/search?query=3359736848")
			require.NoError(t, err)
			b, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			elapsed := time.Since(start)

			assert.Less(t, elapsed, time.Second, "response waited for the stats write")
			assert.True(t, json.Valid(b))
			select {
			case <-rec.done:
				t.Fatal("stats write finished before the response was read")
			default:
			}
		})
	}
}
