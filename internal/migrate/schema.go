package migrate

import (
	"context"
	"database/sql"

	"sim-api/internal/logger"
)

// 背景：首次运行自动创建查询日志与统计表
// 约束：使用 IF NOT EXISTS，可重复执行；查询号码只存脱敏形式
var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS _search_log (
        id BIGSERIAL PRIMARY KEY,
        masked_query TEXT NOT NULL,
        query_type TEXT NOT NULL,
        outcome TEXT NOT NULL,
        upstream_status INT NOT NULL DEFAULT 0,
        results INT NOT NULL DEFAULT 0,
        duration_ms BIGINT NOT NULL DEFAULT 0,
        country TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_search_log_created ON _search_log(created_at)`,
	`CREATE TABLE IF NOT EXISTS _search_stats_total (
        id INT PRIMARY KEY,
        total_queries BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS _search_stats_daily (
        day DATE PRIMARY KEY,
        queries BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS _search_stats_breakdown (
        dim TEXT NOT NULL,
        key TEXT NOT NULL,
        queries BIGINT NOT NULL DEFAULT 0,
        PRIMARY KEY (dim, key)
    )`,
	`INSERT INTO _search_stats_total(id, total_queries)
     VALUES(1, 0)
     ON CONFLICT (id) DO NOTHING`,
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range schemaStmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
