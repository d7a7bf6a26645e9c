package announce

import (
	"context"
	"log/slog"
	"time"

	"confattend/internal/attendance"
	"confattend/internal/metrics"
	"confattend/internal/queue"
)

const sendTimeout = 15 * time.Second

// Worker consumes celebration jobs and announces them. Delivery failures
// are logged and dropped.
type Worker struct {
	jobs   queue.Queue
	sender Sender
}

func NewWorker(jobs queue.Queue, sender Sender) *Worker {
	return &Worker{jobs: jobs, sender: sender}
}

// Run blocks until ctx ends or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.jobs.Consume(ctx)
	if err != nil {
		return err
	}
	slog.Info("announce worker started")
	for msg := range messages {
		w.handle(ctx, msg)
	}
	slog.Info("announce worker stopped")
	return nil
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	if msg.Type != attendance.CelebrationJob {
		slog.Warn("ignoring unknown job", "type", msg.Type)
		metrics.Announcements.WithLabelValues("ignored").Inc()
		return
	}
	var c attendance.Celebration
	if err := msg.Decode(&c); err != nil {
		slog.Warn("dropping malformed celebration", "error", err)
		metrics.Announcements.WithLabelValues("malformed").Inc()
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	a := FromCelebration(c)
	if err := w.sender.Announce(sendCtx, a); err != nil {
		slog.Warn("announcement failed", "attendee_id", c.AttendeeID, "error", err)
		metrics.Announcements.WithLabelValues("failed").Inc()
		return
	}
	slog.Info("announcement delivered", "attendee_id", c.AttendeeID, "day", c.Day, "session", c.Session)
	metrics.Announcements.WithLabelValues("delivered").Inc()
}
