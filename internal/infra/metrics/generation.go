package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(generationSubmitsTotal) }

var generationSubmitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_submits_total",
		Help: "Submissions to the music-generation provider, labeled by outcome.",
	},
	[]string{"outcome"}, // 'ok', 'error'
)

func IncGenerationSubmit(outcome string) {
	generationSubmitsTotal.WithLabelValues(norm(outcome)).Inc()
}
