package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecodrop_verification_jobs_processed_total",
		Help: "Total number of verification jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecodrop_job_processing_duration_seconds",
		Help:    "Duration of the keyframe extraction pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	KeyframesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecodrop_keyframes_extracted_total",
		Help: "Total number of keyframes extracted across all jobs",
	})

	QualityFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecodrop_quality_fallbacks_total",
		Help: "Frames kept despite failing quality thresholds, with no passing substitute in the search radius",
	})

	VideosRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecodrop_videos_rejected_total",
		Help: "Videos rejected before keyframe selection, by reason",
	}, []string{"reason"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecodrop_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecodrop_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
