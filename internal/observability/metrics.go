package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	gradingResultsTotal *prometheus.CounterVec
	gradingDuration     *prometheus.HistogramVec
	plagiarismChecks    *prometheus.CounterVec
	plagiarismFlagged   *prometheus.CounterVec
	plagiarismDuration  *prometheus.HistogramVec
	correctionOutcomes  *prometheus.CounterVec
	alertsPublished     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors shared by the API and the engines.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qbank_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_grading_results_total",
			Help: "Deterministic grading results by question type and outcome.",
		}, []string{"question_type", "outcome"})

		gradingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qbank_grading_duration_seconds",
			Help:    "Time spent in deterministic graders.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"question_type"})

		plagiarismChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_plagiarism_checks_total",
			Help: "Plagiarism checks by modality and status.",
		}, []string{"modality", "status"})

		plagiarismFlagged = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_plagiarism_flagged_total",
			Help: "Answers flagged as plagiarized by modality.",
		}, []string{"modality"})

		plagiarismDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qbank_plagiarism_duration_seconds",
			Help:    "Duration of plagiarism scans.",
			Buckets: prometheus.DefBuckets,
		}, []string{"modality"})

		correctionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_correction_outcomes_total",
			Help: "Terminal states reached by the AI/compiler correction path.",
		}, []string{"question_type", "state"})

		alertsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qbank_plagiarism_alerts_published_total",
			Help: "Plagiarism alerts published by transport and status.",
		}, []string{"transport", "status"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			gradingResultsTotal, gradingDuration,
			plagiarismChecks, plagiarismFlagged, plagiarismDuration,
			correctionOutcomes, alertsPublished,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradingResults exposes the grading outcome counter.
func GradingResults() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingResultsTotal
}

// GradingDuration exposes the grader latency histogram.
func GradingDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingDuration
}

// PlagiarismChecks exposes the plagiarism check counter.
func PlagiarismChecks() *prometheus.CounterVec {
	RegisterMetrics()
	return plagiarismChecks
}

// PlagiarismFlagged exposes the flagged answer counter.
func PlagiarismFlagged() *prometheus.CounterVec {
	RegisterMetrics()
	return plagiarismFlagged
}

// PlagiarismDuration exposes the plagiarism scan histogram.
func PlagiarismDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return plagiarismDuration
}

// CorrectionOutcomes exposes the correction state counter.
func CorrectionOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return correctionOutcomes
}

// AlertsPublished exposes the alert publication counter.
func AlertsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return alertsPublished
}
