package services

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_generations_total",
			Help: "Script generations by outcome (done, error, canceled).",
		},
		[]string{"outcome"},
	)
	generationParseFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "script_generation_parse_fallbacks_total",
			Help: "Generations whose output held no parseable JSON object.",
		},
	)
	generationChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "script_generation_chunks_total",
			Help: "Text fragments relayed to generation clients.",
		},
	)
	complianceChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_checks_total",
			Help: "Compliance checks by resulting status (pass, warning, fail, error).",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationParseFallbacks, generationChunks, complianceChecks)
}

const (
	outcomeDone     = "done"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)
