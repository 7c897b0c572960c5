package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "excel_analyzer_uploads_total",
		Help: "Upload attempts by outcome (accepted, rejected, decode_error, storage_error).",
	}, []string{"outcome"})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "excel_analyzer_upload_processing_seconds",
		Help:    "Time spent decoding and persisting an accepted upload.",
		Buckets: prometheus.DefBuckets,
	})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "excel_analyzer_logins_total",
		Help: "Login attempts by outcome (success, failure, blocked, throttled).",
	}, []string{"outcome"})
)
