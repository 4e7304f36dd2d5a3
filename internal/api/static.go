package api

import (
	"net/http"
	"strings"
	"time"

	"sim-api/internal/lookup"
)

const (
	apiName    = "Pakistan Number Info API"
	apiVersion = "1.0"
	sampleNum  = "3359736848"
	sampleCNIC = "2150952917167"
)

type endpointDoc struct {
	Method  string `json:"method"`
	Usage   string `json:"usage"`
	Example string `json:"example"`
}

// homeDoc：GET / 的接口说明，字段固定
type homeDoc struct {
	APIName          string                 `json:"api_name"`
	Version          string                 `json:"version"`
	Status           string                 `json:"status"`
	Endpoints        map[string]endpointDoc `json:"endpoints"`
	SupportedQueries []string               `json:"supported_queries"`
	Timestamp        string                 `json:"timestamp"`
}

type samplePost struct {
	CurlCommand string `json:"curl_command"`
}

// testDoc：GET /test 的示例用法，字段固定
type testDoc struct {
	Message           string     `json:"message"`
	SampleQueries     []string   `json:"sample_queries"`
	SamplePostRequest samplePost `json:"sample_post_request"`
	Timestamp         string     `json:"timestamp"`
}

// 文档注释：对外示例中使用的基础地址
// 背景：示例 URL 需要指向实际部署地址；配置了 PUBLIC_BASE_URL 时优先使用，否则按请求推断（识别 X-Forwarded-Proto）。
func publicBase(configured string, r *http.Request) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func curlExample(base string) string {
	return `curl -X POST ` + base + `/search -H "Content-Type: application/json" -d '{"query": "` + sampleNum + `"}'`
}

func newHomeDoc(base string, now time.Time) homeDoc {
	return homeDoc{
		APIName: apiName,
		Version: apiVersion,
		Status:  "active",
		Endpoints: map[string]endpointDoc{
			"/search": {
				Method:  "POST",
				Usage:   `{"query": "03123456789"}`,
				Example: curlExample(base),
			},
			"/search?query=number": {
				Method:  "GET",
				Usage:   base + "/search?query=" + sampleNum,
				Example: "Open in browser",
			},
		},
		SupportedQueries: []string{
			"Mobile Number: 10-11 digits (e.g., " + sampleNum + ")",
			"CNIC: 13 digits (e.g., " + sampleCNIC + ")",
			"Mobile with 0: (e.g., 03123456789)",
		},
		Timestamp: lookup.FormatTimestamp(now),
	}
}

func newTestDoc(base string, now time.Time) testDoc {
	return testDoc{
		Message: "API is working!",
		SampleQueries: []string{
			base + "/search?query=" + sampleNum,
			base + "/search?query=" + sampleCNIC,
		},
		SamplePostRequest: samplePost{CurlCommand: curlExample(base)},
		Timestamp:         lookup.FormatTimestamp(now),
	}
}
