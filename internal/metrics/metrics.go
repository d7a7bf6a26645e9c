package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confattend_checkins_total",
		Help: "Attendance recordings by day, session and mode",
	}, []string{"day", "session", "mode"})

	CheckInRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confattend_checkin_rejections_total",
		Help: "Attendance recordings refused, by error kind",
	}, []string{"reason"})

	AutoMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confattend_auto_marks_total",
		Help: "Auto-selection timer outcomes",
	}, []string{"outcome"})

	FeedbackSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confattend_feedback_total",
		Help: "Feedback submissions by flow",
	}, []string{"flow"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "confattend_store_duration_seconds",
		Help:    "Latency of store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	Announcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confattend_announcements_total",
		Help: "Celebration announcements delivered or failed",
	}, []string{"outcome"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "confattend_queue_depth",
		Help: "Jobs waiting in the process-local queue",
	}, []string{"backend"})
)

// ObserveStore records the duration since start under op.
func ObserveStore(op string, start time.Time) {
	StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func Day(d int) string { return strconv.Itoa(d) }
