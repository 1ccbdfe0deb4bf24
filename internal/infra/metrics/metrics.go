package metrics

import (
	"time"

	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "florist_stock"

type Collector struct {
	checks     prometheus.Counter
	deductions *prometheus.CounterVec
	units      prometheus.Counter
	movements  *prometheus.CounterVec
	lowStock   prometheus.Counter
	duration   *prometheus.HistogramVec
}

// New регистрирует метрики в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Проверки доступности продукта.",
		}),
		deductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deductions_total",
			Help:      "Списания материалов на производство по результату.",
		}, []string{"result"}),
		units: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deducted_units_total",
			Help:      "Суммарное списанное количество материалов.",
		}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_total",
			Help:      "Записи журнала склада по типу.",
		}, []string{"type"}),
		lowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Материалы, по которым отправлено предупреждение о низком остатке.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_seconds",
			Help:      "Длительность складских операций.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(c.checks, c.deductions, c.units, c.movements, c.lowStock, c.duration)
	return c
}

func (c *Collector) AvailabilityChecked() { c.checks.Inc() }

func (c *Collector) Deduction(result string, units float64) {
	c.deductions.WithLabelValues(result).Inc()
	if units > 0 {
		c.units.Add(units)
	}
}

func (c *Collector) Movement(t inventory.MoveType) {
	c.movements.WithLabelValues(string(t)).Inc()
}

func (c *Collector) LowStockAlerts(n int) { c.lowStock.Add(float64(n)) }

func (c *Collector) Observe(op string, d time.Duration) {
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}
