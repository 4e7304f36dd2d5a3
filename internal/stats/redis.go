package stats

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "simapi:stats:"
	dayTTL    = 40 * 24 * time.Hour
)

// 文档注释：Redis 计数后端
// 背景：累计/当日计数与按类型、结果的分布用 INCR/HINCRBY 维护，读取为 O(1)；不保存查询明细。
// 约束：当日键按本地日期切分并设置 40 天过期。
type RedisRecorder struct {
	rc  *redis.Client
	now func() time.Time
}

func NewRedis(rc *redis.Client) *RedisRecorder {
	return &RedisRecorder{rc: rc, now: time.Now}
}

func (r *RedisRecorder) Name() string { return "redis" }

func dayKey(t time.Time) string { return keyPrefix + "day:" + t.Format("2006-01-02") }

func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = r.now()
	}
	dk := dayKey(at)
	_, err := r.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, keyPrefix+"total")
		p.Incr(ctx, dk)
		p.Expire(ctx, dk, dayTTL)
		p.HIncrBy(ctx, keyPrefix+"type", ev.QueryType, 1)
		p.HIncrBy(ctx, keyPrefix+"outcome", string(ev.Outcome), 1)
		return nil
	})
	return err
}

func (r *RedisRecorder) Totals(ctx context.Context) (*Totals, error) {
	t := &Totals{}
	var err error
	if t.Total, err = r.getInt(ctx, keyPrefix+"total"); err != nil {
		return nil, err
	}
	if t.Today, err = r.getInt(ctx, dayKey(r.now())); err != nil {
		return nil, err
	}
	if t.ByType, err = r.getHash(ctx, keyPrefix+"type"); err != nil {
		return nil, err
	}
	if t.ByOutcome, err = r.getHash(ctx, keyPrefix+"outcome"); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *RedisRecorder) getInt(ctx context.Context, key string) (int64, error) {
	n, err := r.rc.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *RedisRecorder) getHash(ctx context.Context, key string) (map[string]int64, error) {
	m, err := r.rc.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
