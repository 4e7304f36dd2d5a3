// 包 utils：环境变量读取与外部依赖（PostgreSQL/Redis/TLS）初始化工具
package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString：读取字符串，空值回退默认
func EnvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt：解析失败或空值回退默认
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// EnvBool：仅 "true"/"1"/"yes" 视为真；空值回退默认
func EnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "true", "1", "yes":
		return true
	}
	return false
}

// EnvDuration：支持 "15s"/"500ms" 形式，也接受纯数字（按秒）
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
