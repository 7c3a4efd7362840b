package ceremony

import "github.com/prometheus/client_golang/prometheus"

// defines prometheus metrics
var (
	promCeremoniesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_ceremonies_started_total",
		Help: "total number of ceremony instances started",
	})

	promCeremoniesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_ceremonies_completed_total",
		Help: "total number of ceremonies completed with a result",
	})

	promCeremoniesAborted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_ceremonies_aborted_total",
		Help: "total number of ceremonies aborted",
	})

	promPartialsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_partials_accepted_total",
		Help: "total number of partial decryptions accepted",
	})

	promPartialsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_partials_rejected_total",
		Help: "total number of partial decryptions rejected",
	})
)

func init() {
	prometheus.MustRegister(promCeremoniesStarted, promCeremoniesCompleted,
		promCeremoniesAborted, promPartialsAccepted, promPartialsRejected)
}
