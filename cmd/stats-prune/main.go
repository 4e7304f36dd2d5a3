package main

import (
	"context"
	"os"
	"time"

	"sim-api/internal/logger"
	"sim-api/internal/store"
	"sim-api/internal/utils"

	"github.com/joho/godotenv"
)

// 文档注释：查询日志保留窗口清理
// 背景：_search_log 只用于排障，按 SEARCH_LOG_KEEP_DAYS（默认 30 天）删除过期明细；/stats 的计数表不受影响。
// 约束：适合由 cron 定期调用；单次执行，失败返回非零退出码。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	keepDays := utils.EnvInt("SEARCH_LOG_KEEP_DAYS", 30)
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := store.AttachDB(db).PruneSearchLog(ctx, keepDays)
	if err != nil {
		l.Error("search_log_prune_error", "err", err)
		os.Exit(1)
	}
	l.Info("search_log_prune_done", "keep_days", keepDays, "deleted", n)
}
