// Package metrics provides Prometheus metrics for the polling loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sellbot"

type Metrics struct {
	// Polls counts poll cycles by loop ("offers", "consigns") and outcome.
	Polls *prometheus.CounterVec

	OfferDecisions *prometheus.CounterVec
	SizesAdded     prometheus.Counter
	Placements     *prometheus.CounterVec
	Refreshes      *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
}

// New registers every metric on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by loop and outcome",
		}, []string{"loop", "outcome"}),
		OfferDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "decisions_total",
			Help:      "Offer decisions posted, by decision and result",
		}, []string{"decision", "result"}),
		SizesAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consigns",
			Name:      "sizes_added_total",
			Help:      "Consignment sizes that became available",
		}),
		Placements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consigns",
			Name:      "placements_total",
			Help:      "Consignment placement attempts by result",
		}, []string{"result"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seller",
			Name:      "refreshes_total",
			Help:      "Session refreshes after an expired token, by result",
		}, []string{"result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by kind and result",
		}, []string{"kind", "result"}),
	}
}

// Nop returns metrics registered on a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
