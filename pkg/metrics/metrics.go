// Package metrics provides Prometheus metrics for the catalog engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sorrel"

var (
	// ResolutionsTotal tracks resolver outcomes: matched, created or unresolvable
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of product name resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// CandidateShortlistSize tracks how many canonical products were scored per resolution
	CandidateShortlistSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "shortlist_size",
			Help:      "Number of candidates scored per resolution",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// IngestItemsTotal tracks batch items by status
	IngestItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Total number of listing items processed by status",
		},
		[]string{"source", "status"},
	)

	// IngestBatchDuration tracks batch unit-of-work duration in seconds
	IngestBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Duration of listing batch transactions in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	// MaintenancePassesTotal tracks maintenance passes by name and status
	MaintenancePassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "passes_total",
			Help:      "Total number of maintenance passes by pass and status",
		},
		[]string{"pass", "status"},
	)

	// MaintenanceRowsAffected tracks rows changed by maintenance passes
	MaintenanceRowsAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "rows_affected_total",
			Help:      "Total number of catalog rows changed by maintenance passes",
		},
		[]string{"pass"},
	)

	// KafkaMessagesConsumed tracks Kafka batch messages by status
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of listing batch messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordResolution records one resolver outcome and the shortlist it scored
func RecordResolution(outcome string, shortlist int) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
	CandidateShortlistSize.Observe(float64(shortlist))
}

// RecordIngestItem records a batch item
func RecordIngestItem(source, status string) {
	IngestItemsTotal.WithLabelValues(source, status).Inc()
}

// RecordIngestBatch records a batch transaction
func RecordIngestBatch(status string, durationSeconds float64) {
	IngestBatchDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordMaintenancePass records a maintenance pass and the rows it changed
func RecordMaintenancePass(pass, status string, rows int64) {
	MaintenancePassesTotal.WithLabelValues(pass, status).Inc()
	if rows > 0 {
		MaintenanceRowsAffected.WithLabelValues(pass).Add(float64(rows))
	}
}

func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}

func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// Status returns "success" or "error" for a finished operation
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
