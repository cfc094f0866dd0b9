package photo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "photo_actions_total",
		Help:      "Photo lifecycle decisions taken, by action.",
	}, []string{"action"})

	cleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "photo_cleanup_failures_total",
		Help:      "Best-effort photo operations that failed without failing the request.",
	})
)
