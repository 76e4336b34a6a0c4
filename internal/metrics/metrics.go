package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MigrationRuns counts MigrateSchema calls by outcome (success, failure).
	MigrationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegraph_migration_runs_total",
		Help: "Schema migration runs by outcome",
	}, []string{"outcome"})

	// MigratedEntities counts retagged entities by entity (node, relationship).
	MigratedEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegraph_migrated_entities_total",
		Help: "Entities retagged by committed migrations",
	}, []string{"entity"})

	MigrationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codegraph_migration_duration_seconds",
		Help:    "Schema migration duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	// ReportStepFailures counts resolver steps that degraded to an empty result.
	ReportStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegraph_report_step_failures_total",
		Help: "Resolver report steps that failed",
	}, []string{"step"})

	// IngestedEntities counts entities written by the ingest writer by entity
	// (node, relationship, skipped).
	IngestedEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegraph_ingested_entities_total",
		Help: "Entities written by graph ingestion",
	}, []string{"entity"})
)

// WriteTextfile dumps the default registry in the text exposition format,
// for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
