package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_submissions_created_total",
			Help: "Total number of manuscripts submitted.",
		},
	)

	// result: assigned, conflict, error
	ReviewerAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_reviewer_assignments_total",
			Help: "Reviewer assignment attempts by result.",
		},
		[]string{"result"},
	)

	ReviewsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_reviews_completed_total",
			Help: "Completed peer reviews by recommendation.",
		},
		[]string{"recommendation"},
	)

	ArticlesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_articles_published_total",
			Help: "Total number of articles published.",
		},
	)

	RemindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_review_reminders_sent_total",
			Help: "Reminder mails sent to reviewers with overdue reviews.",
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionsCreated,
		ReviewerAssignments,
		ReviewsCompleted,
		ArticlesPublished,
		RemindersSent,
		httpRequestDuration,
	)
}

// Middleware misst Dauer und Status jeder Anfrage pro Route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
