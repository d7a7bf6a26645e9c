package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"confattend/internal/metrics"
	"confattend/internal/schedule"
)

type DecisionKind string

const (
	DecisionNone     DecisionKind = "none"
	DecisionSingle   DecisionKind = "single"
	DecisionMultiple DecisionKind = "multiple"
)

// Decision is what the kiosk should present for an eligibility snapshot.
type Decision struct {
	Kind     DecisionKind `json:"kind"`
	Options  []Option     `json:"options"`
	Proposed *Option      `json:"proposed,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Decide proposes a selection only when exactly one option is available.
func Decide(e Eligibility) Decision {
	avail := e.Available()
	switch len(avail) {
	case 0:
		return Decision{Kind: DecisionNone, Message: "no sessions currently available"}
	case 1:
		p := avail[0]
		return Decision{Kind: DecisionSingle, Options: avail, Proposed: &p}
	default:
		return Decision{Kind: DecisionMultiple, Options: avail}
	}
}

type afterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfter(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type pendingMark struct {
	day   int
	key   schedule.Key
	due   time.Time
	stop  func() bool
	token uint64
}

// fireFunc re-checks and records the proposal. It reports the outcome label.
type fireFunc func(ctx context.Context, attendeeID string, day int, key schedule.Key) string

// AutoMarker holds at most one pending auto-selection timer per attendee.
type AutoMarker struct {
	delay time.Duration
	after afterFunc
	fire  fireFunc

	mu      sync.Mutex
	pending map[string]pendingMark
	seq     uint64
}

func newAutoMarker(delay time.Duration, fire fireFunc) *AutoMarker {
	return &AutoMarker{
		delay:   delay,
		after:   realAfter,
		fire:    fire,
		pending: make(map[string]pendingMark),
	}
}

// Arm schedules the proposal, replacing any earlier timer for the
// attendee. It returns the instant the timer is due.
func (m *AutoMarker) Arm(attendeeID string, day int, key schedule.Key, now time.Time) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[attendeeID]; ok {
		if p.day == day && p.key == key {
			return p.due
		}
		p.stop()
	}
	m.seq++
	token := m.seq
	stop := m.after(m.delay, func() { m.run(attendeeID, token) })
	due := now.Add(m.delay)
	m.pending[attendeeID] = pendingMark{day: day, key: key, due: due, stop: stop, token: token}
	return due
}

// Cancel clears a pending timer. It reports whether one was pending.
func (m *AutoMarker) Cancel(attendeeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[attendeeID]
	if !ok {
		return false
	}
	p.stop()
	delete(m.pending, attendeeID)
	return true
}

// Pending reports the armed proposal for an attendee.
func (m *AutoMarker) Pending(attendeeID string) (int, schedule.Key, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[attendeeID]
	return p.day, p.key, ok
}

func (m *AutoMarker) run(attendeeID string, token uint64) {
	m.mu.Lock()
	p, ok := m.pending[attendeeID]
	if !ok || p.token != token {
		m.mu.Unlock()
		return
	}
	delete(m.pending, attendeeID)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	outcome := m.fire(ctx, attendeeID, p.day, p.key)
	metrics.AutoMarks.WithLabelValues(outcome).Inc()
	slog.Info("auto-selection fired", "attendee_id", attendeeID, "day", p.day, "session", p.key, "outcome", outcome)
}
