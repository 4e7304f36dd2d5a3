// 包 store: 提供与 PostgreSQL 的数据访问层，负责查询日志与统计读写
package store

import (
	"context"
	"database/sql"
	"time"

	"sim-api/internal/logger"

	_ "github.com/lib/pq"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// SearchLog: 一次 /search 调用的落库记录
type SearchLog struct {
	MaskedQuery    string
	QueryType      string
	Outcome        string
	UpstreamStatus int
	Results        int
	DurationMs     int64
	Country        string
	CreatedAt      time.Time
}

// 分组计数维度，对应 _search_stats_breakdown.dim
const (
	dimType    = "type"
	dimOutcome = "outcome"
)

const breakdownUpsert = "INSERT INTO _search_stats_breakdown(dim, key, queries) VALUES($1, $2, 1) ON CONFLICT (dim, key) DO UPDATE SET queries=_search_stats_breakdown.queries+1"

// 文档注释：写入查询日志并递增累计、当日与分组计数
// 约束：全部语句在同一事务内，任一失败整体回滚；计数表不受日志清理影响
func (s *Store) RecordSearch(ctx context.Context, l SearchLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO _search_log(masked_query, query_type, outcome, upstream_status, results, duration_ms, country, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.MaskedQuery, l.QueryType, l.Outcome, l.UpstreamStatus, l.Results, l.DurationMs, l.Country, l.CreatedAt,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE _search_stats_total SET total_queries=total_queries+1 WHERE id=1"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO _search_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_search_stats_daily.queries+1"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, breakdownUpsert, dimType, l.QueryType); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, breakdownUpsert, dimOutcome, l.Outcome); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Debug("stats_incr", "backend", "postgres", "outcome", l.Outcome)
	return nil
}

// Totals: 累计、当日与按维度分组的查询次数
type Totals struct {
	Total     int64
	Today     int64
	ByType    map[string]int64
	ByOutcome map[string]int64
}

// GetTotals: 读取统计；当日无记录时 Today 为 0
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	t := Totals{ByType: map[string]int64{}, ByOutcome: map[string]int64{}}
	if err := s.db.QueryRowContext(ctx, "SELECT total_queries FROM _search_stats_total WHERE id=1").Scan(&t.Total); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT queries FROM _search_stats_daily WHERE day=current_date").Scan(&t.Today); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err := s.breakdown(ctx, map[string]map[string]int64{dimType: t.ByType, dimOutcome: t.ByOutcome}); err != nil {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}

// breakdown：从分组计数表读取，与 total 同源，清理日志后仍然一致
func (s *Store) breakdown(ctx context.Context, out map[string]map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, "SELECT dim, key, queries FROM _search_stats_breakdown")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var dim, k string
		var n int64
		if err := rows.Scan(&dim, &k, &n); err != nil {
			return err
		}
		if m, ok := out[dim]; ok {
			m[k] = n
		}
	}
	return rows.Err()
}

// 文档注释：清理超出保留期的查询日志
// 背景：日志仅用于排障，累计、当日与分组计数都保存在统计表，删除明细不影响 /stats。
// 返回：删除行数。
func (s *Store) PruneSearchLog(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		keepDays = 30
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM _search_log WHERE created_at < now() - make_interval(days => $1)", keepDays)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
