// Package metrics exposes pipeline counters for the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadGrantsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propledger_upload_grants_issued_total",
		Help: "Number of presigned upload grants issued.",
	})

	UploadsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propledger_uploads_confirmed_total",
		Help: "Number of uploads confirmed into receipt records.",
	})

	ReceiptsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propledger_receipts_processed_total",
		Help: "Number of receipts converted into expenses.",
	})

	ReceiptsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propledger_receipts_deleted_total",
		Help: "Number of receipts hard-deleted without an expense.",
	})

	ThumbnailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propledger_thumbnail_failures_total",
		Help: "Number of best-effort thumbnail generations that failed.",
	})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propledger_realtime_clients",
		Help: "Currently connected realtime sessions.",
	})
)
