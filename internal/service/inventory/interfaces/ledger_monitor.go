// internal/service/inventory/interfaces/ledger_monitor.go
package interfaces

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wangyingjie930/fulfillment/internal/pkg/logger"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// LedgerMonitor 定期统计长时间未对账的预占账本。
// 账本只能由结果事件消除，这里只做观测，不会自动回补库存。
type LedgerMonitor struct {
	store      domain.StockStore
	gauge      prometheus.Gauge
	staleAfter time.Duration
	every      time.Duration
	now        func() time.Time
}

func NewLedgerMonitor(store domain.StockStore, gauge prometheus.Gauge, staleAfter, every time.Duration) *LedgerMonitor {
	return &LedgerMonitor{store: store, gauge: gauge, staleAfter: staleAfter, every: every, now: time.Now}
}

func (m *LedgerMonitor) Name() string { return "ledger-monitor" }

func (m *LedgerMonitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()
	for {
		m.scan(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *LedgerMonitor) Stop(context.Context) error { return nil }

func (m *LedgerMonitor) scan(ctx context.Context) {
	n, err := m.store.CountLedgersOlderThan(ctx, m.now().Add(-m.staleAfter))
	if err != nil {
		if ctx.Err() == nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("stale ledger scan failed")
		}
		return
	}
	m.gauge.Set(float64(n))
	if n > 0 {
		logger.Ctx(ctx).Warn().
			Int64("count", n).
			Dur("older_than", m.staleAfter).
			Msg("⚠️ reservation ledgers awaiting order outcome")
	}
}
