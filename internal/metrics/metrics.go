package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeNetwork     = "network_error"
	OutcomeParse       = "parse_error"
	OutcomeSchema      = "schema_error"
	OutcomeBusy        = "in_flight"
	OutcomeStoreFailed = "store_error"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is a no-op.
type Metrics struct {
	generations       *prometheus.CounterVec
	generationSeconds prometheus.Histogram
	uploads           *prometheus.CounterVec
	answers           *prometheus.CounterVec
	completions       prometheus.Counter
	percent           prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizforge",
			Name:      "generations_total",
			Help:      "Question set generation attempts by outcome.",
		}, []string{"outcome"}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizforge",
			Name:      "generation_duration_seconds",
			Help:      "Latency of calls to the question generator.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizforge",
			Name:      "uploads_total",
			Help:      "Question set uploads by outcome.",
		}, []string{"outcome"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizforge",
			Name:      "answers_total",
			Help:      "Submitted answers by correctness and mode.",
		}, []string{"correct", "mode"}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizforge",
			Name:      "quizzes_completed_total",
			Help:      "Completed quiz sessions.",
		}),
		percent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizforge",
			Name:      "result_percent",
			Help:      "Distribution of final quiz percentages.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.generations, m.generationSeconds, m.uploads, m.answers, m.completions, m.percent)
	}
	return m
}

func (m *Metrics) ObserveGeneration(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	if outcome != OutcomeBusy {
		m.generationSeconds.Observe(took.Seconds())
	}
}

func (m *Metrics) ObserveUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAnswer(correct bool, mode string) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answers.WithLabelValues(label, mode).Inc()
}

func (m *Metrics) ObserveCompletion(percent int) {
	if m == nil {
		return
	}
	m.completions.Inc()
	m.percent.Observe(float64(percent))
}
