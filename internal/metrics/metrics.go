package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	cycleErrors   prometheus.Counter
	ordersPlaced  prometheus.Counter
	compressions  prometheus.Counter
	partialCloses prometheus.Counter
	positionsDone prometheus.Counter
	openPositions prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Количество выполненных циклов сверки.",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_cycle_errors_total",
			Help: "Количество ошибок внутри циклов сверки.",
		}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_orders_placed_total",
			Help: "Количество размещённых отложенных ордеров.",
		}),
		compressions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_tp_compressions_total",
			Help: "Количество сжатий TP до уровня 3R.",
		}),
		partialCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_partial_closes_total",
			Help: "Количество частичных фиксаций прибыли.",
		}),
		positionsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_positions_closed_total",
			Help: "Количество завершённых позиций.",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Текущее количество сопровождаемых позиций.",
		}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.cycleErrors,
		m.ordersPlaced,
		m.compressions,
		m.partialCloses,
		m.positionsDone,
		m.openPositions,
	)
	return m
}

func (m *Metrics) CycleInc()              { m.cycles.Inc() }
func (m *Metrics) CycleErrorInc()         { m.cycleErrors.Inc() }
func (m *Metrics) OrderPlacedInc()        { m.ordersPlaced.Inc() }
func (m *Metrics) CompressionInc()        { m.compressions.Inc() }
func (m *Metrics) PartialCloseInc()       { m.partialCloses.Inc() }
func (m *Metrics) PositionClosedInc()     { m.positionsDone.Inc() }
func (m *Metrics) SetOpenPositions(n int) { m.openPositions.Set(float64(n)) }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
