package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polytechnic", Name: "reward_fine_sweep_runs_total", Help: "Reward/fine recomputation runs",
	})
	SweepFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polytechnic", Name: "reward_fine_sweep_failures_total", Help: "Reward/fine recomputation failures",
	})
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "polytechnic", Name: "reward_fine_sweep_duration_seconds", Help: "Reward/fine recomputation duration",
		Buckets: prometheus.DefBuckets,
	})
	ConflictChecks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polytechnic", Name: "schedule_conflict_checks_total", Help: "Schedule conflict checks performed",
	})
	ConflictsFound = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polytechnic", Name: "schedule_conflicts_found_total", Help: "Schedule conflicts rejected",
	})
)

func init() {
	prometheus.MustRegister(SweepRuns, SweepFailures, SweepDuration, ConflictChecks, ConflictsFound)
}

func Handler() http.Handler { return promhttp.Handler() }
