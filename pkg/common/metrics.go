package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t8n_repl_commands_total",
		Help: "Total number of session commands dispatched",
	}, []string{"command", "status"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t8n_repl_runs_total",
		Help: "Total number of executor runs",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "t8n_repl_run_duration_seconds",
		Help:    "Time taken by a run, from artifact writing to trace harvesting",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	TraceFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "t8n_repl_trace_files_total",
		Help: "Total number of trace files harvested after runs",
	})

	SnapshotOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t8n_repl_snapshot_operations_total",
		Help: "Total number of session snapshot saves and loads",
	}, []string{"store", "operation", "status"})
)
