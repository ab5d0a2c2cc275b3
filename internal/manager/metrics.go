package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	managerRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "streamd",
			Subsystem: "manager",
			Name:      "running",
			Help:      "1 while the manager's dispatch goroutine is running",
		},
		[]string{"manager"},
	)

	managerStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "manager",
			Name:      "starts_total",
			Help:      "Total number of Stopped->Running transitions",
		},
		[]string{"manager"},
	)

	managerStopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "manager",
			Name:      "stops_total",
			Help:      "Total number of Running->Stopped transitions",
		},
		[]string{"manager"},
	)

	managerStopWaiting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "streamd",
			Subsystem: "manager",
			Name:      "stop_waiting",
			Help:      "1 while Stop has been waiting on the dispatch goroutine longer than the warn interval",
		},
		[]string{"manager"},
	)

	workerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "manager",
			Name:      "worker_errors_total",
			Help:      "Rover context start/stop failures",
		},
		[]string{"manager", "rover", "op"},
	)
)

func init() {
	prometheus.MustRegister(managerRunning, managerStartsTotal, managerStopsTotal, managerStopWaiting, workerErrorsTotal)
}
