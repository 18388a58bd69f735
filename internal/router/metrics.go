package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	members           prometheus.Gauge
	lookups           *prometheus.CounterVec
	membershipChanges *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		members: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hashring_members",
			Help: "Number of nodes currently on the ring.",
		}),
		lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hashring_lookups_total",
			Help: "Total number of key lookups, by whether a node was found.",
		}, []string{"result"}),
		membershipChanges: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hashring_membership_changes_total",
			Help: "Total number of nodes added to or removed from the ring.",
		}, []string{"op"}),
	}
}
