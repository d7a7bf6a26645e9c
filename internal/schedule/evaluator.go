package schedule

import (
	"sync"
	"time"
)

// IST is the fixed UTC+05:30 offset every session is defined in.
var IST = time.FixedZone("IST", 5*3600+1800)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a settable clock for tests and replays.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Phase is the position of an instant relative to a session window.
type Phase string

const (
	PhaseNotToday     Phase = "not-today"
	PhaseMalformed    Phase = "malformed"
	PhaseUpcoming     Phase = "upcoming"
	PhaseStartingSoon Phase = "starting-soon"
	PhaseActive       Phase = "active"
	PhaseJustEnded    Phase = "just-ended"
	PhaseEnded        Phase = "ended"
)

const (
	StatusActive       = "Active Now"
	StatusStartingSoon = "Starting Soon"
	StatusJustEnded    = "Just Ended"
	StatusEnded        = "Ended"
	StatusNotToday     = "Not today"
	StatusUnavailable  = "Unavailable"
)

// Window is the evaluation of one session at one instant.
type Window struct {
	Active      bool      `json:"is_active"`
	InBuffer    bool      `json:"is_in_buffer"`
	Available   bool      `json:"available"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	BufferStart time.Time `json:"buffer_start"`
	BufferEnd   time.Time `json:"buffer_end"`
	Phase       Phase     `json:"phase"`
	Status      string    `json:"status"`
}

// Evaluate places now relative to the session window. A session whose
// calendar date is not now's IST date is unavailable whatever the time.
func Evaluate(s Session, now time.Time) Window {
	start, end, err := s.Instants()
	if err != nil {
		return Window{Phase: PhaseMalformed, Status: StatusUnavailable}
	}
	w := Window{
		Start:       start,
		End:         end,
		BufferStart: start.Add(-s.buffer()),
		BufferEnd:   end.Add(s.buffer()),
	}

	if DateOf(now) != s.Date {
		w.Phase, w.Status = PhaseNotToday, StatusNotToday
		return w
	}
	w.Available = true
	if s.Malformed() {
		w.Phase, w.Status = PhaseMalformed, StatusUnavailable
		return w
	}

	switch {
	case !now.Before(start) && !now.After(end):
		w.Active = true
		w.Phase, w.Status = PhaseActive, StatusActive
	case !now.Before(w.BufferStart) && now.Before(start):
		w.InBuffer = true
		w.Phase, w.Status = PhaseStartingSoon, StatusStartingSoon
	case now.After(end) && !now.After(w.BufferEnd):
		w.InBuffer = true
		w.Phase, w.Status = PhaseJustEnded, StatusJustEnded
	case now.Before(w.BufferStart):
		w.Phase, w.Status = PhaseUpcoming, "Starts at "+s.Start.String()
	default:
		w.Phase, w.Status = PhaseEnded, StatusEnded
	}
	return w
}

// Ended reports whether now is strictly after the session end instant.
func Ended(s Session, now time.Time) bool {
	_, end, err := s.Instants()
	if err != nil || s.Malformed() {
		return false
	}
	return now.After(end)
}

// LateMinutes measures lateness from the session end, not its start.
func LateMinutes(s Session, entry ClockTime) int {
	if late := int(entry - s.End); late > 0 {
		return late
	}
	return 0
}
