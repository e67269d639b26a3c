package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mako_jobs_created_total",
		Help: "Total number of tool-script jobs accepted into the registry.",
	})

	jobsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mako_jobs_rejected_total",
		Help: "Total number of job submissions rejected, by error code.",
	}, []string{"code"})

	jobLookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mako_job_lookup_misses_total",
		Help: "Job lookups that returned not-found, including ownership mismatches.",
	})
)
