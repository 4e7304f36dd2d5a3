// 包 stats：查询统计的记录与读取，支持 Redis 计数与 PostgreSQL 日志两种后端并行写入
package stats

import (
	"context"
	"errors"
	"time"

	"sim-api/internal/logger"
	"sim-api/internal/metrics"
)

// Outcome：查询结果分类，与错误分类保持一致，成功为 "ok"
type Outcome string

const OutcomeOK Outcome = "ok"

// Event：一次 /search 调用
type Event struct {
	MaskedQuery    string
	QueryType      string
	Outcome        Outcome
	UpstreamStatus int
	Results        int
	Duration       time.Duration
	Country        string
	At             time.Time
}

// Totals：对外统计结构
type Totals struct {
	Total     int64            `json:"total"`
	Today     int64            `json:"today"`
	ByType    map[string]int64 `json:"by_type"`
	ByOutcome map[string]int64 `json:"by_outcome"`
}

type Recorder interface {
	Name() string
	Record(ctx context.Context, ev Event) error
	Totals(ctx context.Context) (*Totals, error)
}

// ErrDisabled：没有任何可用后端
var ErrDisabled = errors.New("stats disabled")

// 文档注释：多后端统计链
// 背景：写入时逐个后端记录（失败只记日志与指标，不影响其他后端）；读取时按顺序取第一个成功的后端。
// 约束：nil 后端被忽略；空链的 Totals 返回 ErrDisabled。
type Chain struct {
	list []Recorder
}

func NewChain(list ...Recorder) *Chain {
	c := &Chain{}
	for _, r := range list {
		if r != nil {
			c.list = append(c.list, r)
		}
	}
	return c
}

func (c *Chain) Enabled() bool { return len(c.list) > 0 }

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range c.list {
		if err := r.Record(ctx, ev); err != nil {
			metrics.StatsWriteFailTotal.WithLabelValues(r.Name()).Inc()
			logger.FromContext(ctx).Warn("stats_record_error", "backend", r.Name(), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Chain) Totals(ctx context.Context) (*Totals, error) {
	if len(c.list) == 0 {
		return nil, ErrDisabled
	}
	var last error
	for _, r := range c.list {
		t, err := r.Totals(ctx)
		if err == nil && t != nil {
			return t, nil
		}
		if err == nil {
			err = errors.New("empty totals")
		}
		logger.FromContext(ctx).Debug("stats_totals_error", "backend", r.Name(), "err", err)
		last = err
	}
	return nil, last
}
