package compose

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "moments",
	Name:      "submissions_total",
	Help:      "Moment submissions by outcome.",
}, []string{"outcome"})
