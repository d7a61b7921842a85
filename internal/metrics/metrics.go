package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_intake_documents_processed_total",
			Help: "Documents that finished a processing pass, by category and status",
		},
		[]string{"category", "status"},
	)

	ExtractionMethod = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_intake_extraction_method_total",
			Help: "Text extraction results by winning method",
		},
		[]string{"method"},
	)

	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_intake_ai_requests_total",
			Help: "Chat completion calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_intake_ai_retries_total",
			Help: "Rate-limited chat completion calls that were retried",
		},
		[]string{"operation"},
	)

	DetailsSource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_intake_details_source_total",
			Help: "Structured details written, by kind and the strategy that produced them",
		},
		[]string{"kind", "source"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loan_intake_queue_depth",
			Help: "Documents waiting for a background worker",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		DocumentsProcessed,
		ExtractionMethod,
		AIRequests,
		AIRetries,
		DetailsSource,
		QueueDepth,
	}
}

// Register adds all collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
