package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Collector provides application metrics collection
type Collector struct {
	// Ingest
	ReadingsTotal *prometheus.CounterVec

	// Light
	PPFD      *prometheus.GaugeVec
	DLI       *prometheus.GaugeVec
	DLIWeekly *prometheus.GaugeVec

	// Health
	CheckProblem *prometheus.GaugeVec
	EventsTotal  *prometheus.CounterVec

	// Irrigation
	IrrigationsTotal *prometheus.CounterVec

	// Egress
	EgressDroppedTotal *prometheus.CounterVec

	// Engine / API
	TickDuration       prometheus.Histogram
	APIRequestDuration *prometheus.HistogramVec
}

// NewCollector registers the collector on reg; nil means the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		ReadingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_total",
				Help:      "Sensor readings by metric and ingest result",
			},
			[]string{"metric", "result"},
		),

		PPFD: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ppfd_umol_m2_s",
				Help:      "Last PPFD per entity",
			},
			[]string{"entity"},
		),

		DLI: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dli_mol_m2_day",
				Help:      "DLI of the last finalised day per entity",
			},
			[]string{"entity"},
		),

		DLIWeekly: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dli_weekly_average_mol_m2_day",
				Help:      "Mean DLI over the retained days per entity",
			},
			[]string{"entity"},
		),

		CheckProblem: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "check_problem",
				Help:      "1 while a check is in problem state, 0 otherwise",
			},
			[]string{"entity", "check"},
		),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Emitted engine events by type",
			},
			[]string{"type"},
		),

		IrrigationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "irrigations_total",
				Help:      "Irrigation triggers by zone and reason",
			},
			[]string{"zone", "reason"},
		),

		EgressDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "egress_dropped_total",
				Help:      "Events dropped because a sink queue was full",
			},
			[]string{"sink"},
		),

		TickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tick_duration_seconds",
				Help:      "Duration of one engine tick",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint", "method", "status"},
		),
	}
}

func (c *Collector) RecordReading(kind models.MetricKind, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	c.ReadingsTotal.WithLabelValues(string(kind), result).Inc()
}

func (c *Collector) RecordPPFD(entityID string, ppfd float64) {
	c.PPFD.WithLabelValues(entityID).Set(ppfd)
}

func (c *Collector) RecordDrop(sink string) {
	c.EgressDroppedTotal.WithLabelValues(sink).Inc()
}

func (c *Collector) ObserveTick(d time.Duration) {
	c.TickDuration.Observe(d.Seconds())
}

func (c *Collector) Name() string { return "prometheus" }

// Deliver updates the gauges and counters an event affects. It is cheap and
// can be subscribed directly on the dispatcher.
func (c *Collector) Deliver(_ context.Context, ev models.Event) error {
	c.EventsTotal.WithLabelValues(string(ev.EventType())).Inc()

	switch e := ev.(type) {
	case models.StateChanged:
		v := 0.0
		if e.New == models.StateProblem {
			v = 1
		}
		c.CheckProblem.WithLabelValues(e.EntityID, string(e.Check)).Set(v)
	case models.DLIFinalized:
		c.DLI.WithLabelValues(e.EntityID).Set(e.DLI)
		c.DLIWeekly.WithLabelValues(e.EntityID).Set(e.WeeklyAverage)
	case models.LightSample:
		c.PPFD.WithLabelValues(e.EntityID).Set(e.PPFD)
	case models.IrrigationEvent:
		c.IrrigationsTotal.WithLabelValues(e.ZoneID, string(e.Reason)).Inc()
	}
	return nil
}

// GinMiddleware times every request by route.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		c.APIRequestDuration.
			WithLabelValues(endpoint, ctx.Request.Method, strconv.Itoa(ctx.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
