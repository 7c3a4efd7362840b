package api

import "github.com/prometheus/client_golang/prometheus"

// defines prometheus metrics
var (
	promVotesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_votes_accepted_total",
		Help: "total number of votes appended to the ledger",
	})

	promVotesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tallyz_votes_rejected_total",
		Help: "total number of votes rejected before reaching the ledger",
	})
)

func init() {
	prometheus.MustRegister(promVotesAccepted, promVotesRejected)
}
