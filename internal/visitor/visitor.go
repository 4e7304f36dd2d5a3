// 包 visitor：访问者 IP 解析与可选的国家归属查询（MaxMind mmdb）
package visitor

import (
	"net"
	"net/http"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// 文档注释：获取访问者 IP
// 背景：部署在 Railway/Cloudflare 等代理之后，RemoteAddr 是代理地址；按常见代理头顺序取首个地址，最后回退 RemoteAddr。
// 约束：头部可被伪造，结果只用于统计，不用于访问控制。
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("cf-connecting-ip"); x != "" {
		return strings.TrimSpace(x)
	}
	if x := h.Get("x-real-ip"); x != "" {
		return strings.TrimSpace(x)
	}
	if x := h.Get("forwarded"); x != "" {
		i := strings.Index(strings.ToLower(x), "for=")
		if i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			y = strings.Trim(y, "\" ")
			y = strings.TrimPrefix(y, "[")
			if p := strings.Index(y, "]"); p >= 0 {
				y = y[:p]
			}
			return y
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// Resolver：IP → 国家 ISO 代码；未加载数据库时恒返回空串
type Resolver struct {
	db *geoip2.Reader
}

// Open：path 为空返回空 Resolver
func Open(path string) (*Resolver, error) {
	if path == "" {
		return &Resolver{}, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{db: db}, nil
}

func (r *Resolver) Enabled() bool { return r != nil && r.db != nil }

// Country：解析失败或私网地址返回空串
func (r *Resolver) Country(ip string) string {
	if !r.Enabled() {
		return ""
	}
	p := net.ParseIP(ip)
	if p == nil || p.IsPrivate() || p.IsLoopback() {
		return ""
	}
	rec, err := r.db.Country(p)
	if err != nil || rec == nil {
		return ""
	}
	return rec.Country.IsoCode
}

func (r *Resolver) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.db.Close()
}
