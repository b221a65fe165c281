// Package metrics exposes Prometheus instrumentation for the gateway and
// the processing worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the meeting pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Live session metrics
	LiveSessionsActive  prometheus.Gauge
	LiveSessionsTotal   *prometheus.CounterVec
	LiveSessionDuration prometheus.Histogram
	LiveAudioSeconds    prometheus.Counter

	// Recognition metrics
	RecognitionsTotal   *prometheus.CounterVec
	RecognitionDuration prometheus.Histogram

	// Batch pipeline metrics
	PipelineJobsTotal    *prometheus.CounterVec
	PipelineStepDuration *prometheus.HistogramVec
	LLMCalls             *prometheus.CounterVec

	// Object storage metrics
	StorageUploadBytes prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all collectors registered on
// a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "meetingmind"
	}

	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	liveSessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions_active",
			Help:      "Number of active live transcription sessions",
		},
	)

	liveSessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sessions_total",
			Help:      "Total number of live transcription sessions",
		},
		[]string{"status"},
	)

	liveSessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "live_session_duration_seconds",
			Help:      "Live session duration in seconds",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
		},
	)

	liveAudioSeconds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_audio_seconds_total",
			Help:      "Total seconds of audio received on live sessions",
		},
	)

	recognitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Total speech recognition requests",
		},
		[]string{"status"},
	)

	recognitionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_duration_seconds",
			Help:      "Speech recognition request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	pipelineJobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_jobs_total",
			Help:      "Total batch processing jobs",
		},
		[]string{"status"},
	)

	pipelineStepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_duration_seconds",
			Help:      "Batch pipeline step duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	llmCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total LLM analysis calls",
		},
		[]string{"agent", "status"},
	)

	storageUploadBytes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_upload_bytes_total",
			Help:      "Total bytes of audio uploaded to object storage",
		},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		liveSessionsActive,
		liveSessionsTotal,
		liveSessionDuration,
		liveAudioSeconds,
		recognitionsTotal,
		recognitionDuration,
		pipelineJobsTotal,
		pipelineStepDuration,
		llmCalls,
		storageUploadBytes,
		errorsTotal,
	)

	return &Metrics{
		registry:             registry,
		RequestsTotal:        requestsTotal,
		RequestDuration:      requestDuration,
		LiveSessionsActive:   liveSessionsActive,
		LiveSessionsTotal:    liveSessionsTotal,
		LiveSessionDuration:  liveSessionDuration,
		LiveAudioSeconds:     liveAudioSeconds,
		RecognitionsTotal:    recognitionsTotal,
		RecognitionDuration:  recognitionDuration,
		PipelineJobsTotal:    pipelineJobsTotal,
		PipelineStepDuration: pipelineStepDuration,
		LLMCalls:             llmCalls,
		StorageUploadBytes:   storageUploadBytes,
		ErrorsTotal:          errorsTotal,
	}
}

// Handler returns the scrape endpoint for this registry. A nil receiver
// returns a 404 handler so metrics stay optional.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordLiveSessionStart() {
	if m == nil {
		return
	}
	m.LiveSessionsActive.Inc()
}

func (m *Metrics) RecordLiveSessionEnd(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LiveSessionsActive.Dec()
	m.LiveSessionsTotal.WithLabelValues(status).Inc()
	m.LiveSessionDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordLiveAudio(seconds float64) {
	if m == nil {
		return
	}
	m.LiveAudioSeconds.Add(seconds)
}

func (m *Metrics) RecordRecognition(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RecognitionsTotal.WithLabelValues(status).Inc()
	m.RecognitionDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordPipelineJob(status string) {
	if m == nil {
		return
	}
	m.PipelineJobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordPipelineStep(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PipelineStepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMCall(agent, status string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(agent, status).Inc()
}

func (m *Metrics) RecordStorageUpload(bytes int) {
	if m == nil {
		return
	}
	m.StorageUploadBytes.Add(float64(bytes))
}

func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
