package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "moments",
	Name:      "feed_loads_total",
	Help:      "Feed loads by trigger and outcome.",
}, []string{"trigger", "status"})
