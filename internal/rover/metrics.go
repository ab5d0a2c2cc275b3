package rover

import "github.com/prometheus/client_golang/prometheus"

var (
	roverBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "rover",
			Name:      "bytes_total",
			Help:      "Bytes delivered by rover streams",
		},
		[]string{"manager", "rover"},
	)

	roverFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "rover",
			Name:      "frames_total",
			Help:      "Data frames delivered by rover streams",
		},
		[]string{"manager", "rover"},
	)

	roverReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "rover",
			Name:      "reconnects_total",
			Help:      "Upstream connection attempts",
		},
		[]string{"manager", "rover"},
	)
)

func init() {
	prometheus.MustRegister(roverBytesTotal, roverFramesTotal, roverReconnectsTotal)
}
