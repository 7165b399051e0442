package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(songJobsProcessedTotal, songJobCacheHitsTotal, songJobPollAttempts) }

var songJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "song_jobs_processed_total",
		Help: "Total number of song jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'succeeded', 'failed'
)

var songJobCacheHitsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "song_job_cache_hits_total",
		Help: "Jobs resolved from a previously succeeded job with the same input hash.",
	},
)

var songJobPollAttempts = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "song_job_poll_attempts",
		Help:    "Provider poll attempts per job before resolution.",
		Buckets: []float64{1, 2, 5, 10, 20, 40, 60},
	},
)

func IncSongJob(status string)   { songJobsProcessedTotal.WithLabelValues(norm(status)).Inc() }
func IncCacheHit()               { songJobCacheHitsTotal.Inc() }
func ObservePollAttempts(n int)  { songJobPollAttempts.Observe(float64(n)) }
