package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the daemon. Each collector owns
// its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Intents sent on the broadcast bus, by action.
	IntentsSent *prometheus.CounterVec
	// Inbound SMS seen per source, before dedup.
	InboundSMS *prometheus.CounterVec
	// Retrieval sessions by result: matched, timeout, replaced.
	Sessions *prometheus.CounterVec
	// Subscription outcomes: message, timeout, unrecognized, malformed.
	Outcomes *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		IntentsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_sent_total",
			Help:      "Intents sent on the broadcast bus.",
		}, []string{"action"}),
		InboundSMS: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_sms_total",
			Help:      "Inbound SMS received per source.",
		}, []string{"source"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_sessions_total",
			Help:      "Closed SMS retrieval sessions by result.",
		}, []string{"result"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_outcomes_total",
			Help:      "Events handled by SMS subscriptions by outcome.",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(c.IntentsSent, c.InboundSMS, c.Sessions, c.Outcomes)
	return c
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// The helpers below accept a nil receiver so components can run without metrics.

func (c *Collector) IntentSent(action string) {
	if c != nil {
		c.IntentsSent.WithLabelValues(action).Inc()
	}
}

func (c *Collector) SMSReceived(source string) {
	if c != nil {
		c.InboundSMS.WithLabelValues(source).Inc()
	}
}

func (c *Collector) SessionClosed(result string) {
	if c != nil {
		c.Sessions.WithLabelValues(result).Inc()
	}
}

func (c *Collector) Outcome(outcome string) {
	if c != nil {
		c.Outcomes.WithLabelValues(outcome).Inc()
	}
}
