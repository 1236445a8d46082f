package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printflow_jobs_enqueued_total",
		Help: "Print jobs accepted into the queue.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printflow_jobs_completed_total",
		Help: "Print jobs that finished successfully and left the queue.",
	})

	JobAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printflow_job_attempts_total",
		Help: "Processing attempts across all jobs.",
	})

	JobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printflow_job_failures_total",
		Help: "Failed processing attempts by classified kind.",
	}, []string{"kind"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "printflow_queue_depth",
		Help: "Jobs currently waiting in the queue, head included.",
	})

	DeliveryNumbersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printflow_delivery_numbers_issued_total",
		Help: "Delivery numbers issued by the sequence.",
	})

	WebhooksSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printflow_webhooks_sent_total",
		Help: "Webhook deliveries by result.",
	}, []string{"result"})
)
