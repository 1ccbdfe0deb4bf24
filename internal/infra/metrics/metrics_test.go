package metrics

import (
	"testing"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.AvailabilityChecked()
	c.AvailabilityChecked()
	c.Deduction("ok", 15.5)
	c.Deduction("insufficient", 0)
	c.Movement(inventory.MoveConsumption)
	c.Movement(inventory.MoveConsumption)
	c.Movement(inventory.MoveSupply)
	c.LowStockAlerts(3)
	c.Observe("deduct", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.checks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deductions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deductions.WithLabelValues("insufficient")))
	assert.Equal(t, 15.5, testutil.ToFloat64(c.units))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.movements.WithLabelValues("consumption")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.movements.WithLabelValues("supply")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.lowStock))

	n, err := testutil.GatherAndCount(reg, "florist_stock_operation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
