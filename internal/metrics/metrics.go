package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts swipe decisions, matches and notification gate outcomes.
// It satisfies the Metrics interfaces of the swipes and notify services.
type Collector struct {
	swipes     *prometheus.CounterVec
	matches    prometheus.Counter
	gateAllows *prometheus.CounterVec
	gateDenies *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawmatch_swipes_total",
			Help: "Accepted swipes by decision.",
		}, []string{"decision"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pawmatch_matches_total",
			Help: "Mutual matches created.",
		}),
		gateAllows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawmatch_notification_allow_total",
			Help: "Notifications allowed by the gate, by category.",
		}, []string{"category"}),
		gateDenies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawmatch_notification_deny_total",
			Help: "Notifications denied by the gate, by category and reason.",
		}, []string{"category", "reason"}),
	}

	reg.MustRegister(
		c.swipes,
		c.matches,
		c.gateAllows,
		c.gateDenies,
	)

	return c
}

func (c *Collector) RecordSwipe(decision string) {
	c.swipes.WithLabelValues(decision).Inc()
}

func (c *Collector) RecordMatch() {
	c.matches.Inc()
}

func (c *Collector) RecordGateAllow(category string) {
	c.gateAllows.WithLabelValues(category).Inc()
}

func (c *Collector) RecordGateDeny(category, reason string) {
	c.gateDenies.WithLabelValues(category, reason).Inc()
}

// Handler returns the Prometheus scrape handler for the registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
