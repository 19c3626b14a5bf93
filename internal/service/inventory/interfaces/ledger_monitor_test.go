package interfaces

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/infrastructure"
)

func TestLedgerMonitorReportsStaleLedgers(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.WithinTx(ctx, func(tx domain.StockTx) error {
		if err := tx.CreateReservationLedger(ctx, domain.NewReservedStock("old", "u1", map[string]int{"p1": 1}, base)); err != nil {
			return err
		}
		return tx.CreateReservationLedger(ctx, domain.NewReservedStock("new", "u1", map[string]int{"p1": 1}, base.Add(50*time.Minute)))
	}))

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "stale"})
	m := NewLedgerMonitor(store, gauge, 30*time.Minute, time.Minute)
	m.now = func() time.Time { return base.Add(time.Hour) }

	m.scan(ctx)
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))
}
