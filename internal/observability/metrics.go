package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollhub_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pollhub_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// VotesTotal counts vote attempts by outcome.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollhub_votes_total",
		Help: "Vote submissions by result",
	}, []string{"result"})

	// RegistrationsTotal counts successful registrations.
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollhub_registrations_total",
		Help: "Total number of registered users",
	})

	// QuestionsCreatedTotal counts questions created through the site.
	QuestionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollhub_questions_created_total",
		Help: "Total number of created questions",
	})
)

// Vote outcome labels.
const (
	VoteResultRecorded      = "recorded"
	VoteResultAlreadyVoted  = "already_voted"
	VoteResultInvalidChoice = "invalid_choice"
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// RecordVote increments the vote counter for the given outcome.
func RecordVote(result string) {
	VotesTotal.WithLabelValues(result).Inc()
}
