package stats

import (
	"context"
	"time"

	"sim-api/internal/store"
)

// PostgresRecorder：把事件写入查询日志表，统计从统计表与日志分组读取
type PostgresRecorder struct {
	st *store.Store
}

func NewPostgres(st *store.Store) *PostgresRecorder { return &PostgresRecorder{st: st} }

func (p *PostgresRecorder) Name() string { return "postgres" }

func (p *PostgresRecorder) Record(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return p.st.RecordSearch(ctx, store.SearchLog{
		MaskedQuery:    ev.MaskedQuery,
		QueryType:      ev.QueryType,
		Outcome:        string(ev.Outcome),
		UpstreamStatus: ev.UpstreamStatus,
		Results:        ev.Results,
		DurationMs:     ev.Duration.Milliseconds(),
		Country:        ev.Country,
		CreatedAt:      at,
	})
}

func (p *PostgresRecorder) Totals(ctx context.Context) (*Totals, error) {
	t, err := p.st.GetTotals(ctx)
	if err != nil {
		return nil, err
	}
	return &Totals{Total: t.Total, Today: t.Today, ByType: t.ByType, ByOutcome: t.ByOutcome}, nil
}
