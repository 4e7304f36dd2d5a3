package utils

import (
	"sim-api/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedisFromEnv：从环境变量打开 Redis 客户端，支持 REDIS_DB 选择
// 约束：未配置 REDIS_HOST 时返回 nil（统计退化为仅 PostgreSQL 或关闭）；REDIS_DB 非法时回退 0
func OpenRedisFromEnv() *redis.Client {
	host := EnvString("REDIS_HOST", "")
	if host == "" {
		return nil
	}
	addr := host + ":" + EnvString("REDIS_PORT", "6379")
	db := EnvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: EnvString("REDIS_PASS", ""), DB: db})
}
