package attendance

import (
	"fmt"
	"time"

	"confattend/internal/schedule"
)

// State of one (attendee, day, session) selection.
type State string

const (
	LockedComplete     State = "locked-complete"
	LockedPrerequisite State = "locked-prerequisite"
	Available          State = "available"
	UnavailableTime    State = "unavailable-time"
)

// Option is a derived, never persisted, selection for an attendee.
type Option struct {
	Day     int             `json:"day"`
	Session schedule.Key    `json:"session"`
	Display string          `json:"display"`
	State   State           `json:"state"`
	Reason  string          `json:"reason,omitempty"`
	Window  schedule.Window `json:"window"`
}

type Eligibility struct {
	AttendeeID  string    `json:"attendee_id"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Options     []Option  `json:"options"`
}

// Option returns the evaluated selection for (day, key).
func (e Eligibility) Option(day int, key schedule.Key) (Option, bool) {
	for _, o := range e.Options {
		if o.Day == day && o.Session == key {
			return o, true
		}
	}
	return Option{}, false
}

// Available returns the selectable options in timetable order.
func (e Eligibility) Available() []Option {
	var out []Option
	for _, o := range e.Options {
		if o.State == Available {
			out = append(out, o)
		}
	}
	return out
}

// Evaluate derives every option for the attendee at now. Day d > 1 is
// gated on day d-1 having been attended and on d's own calendar date.
func Evaluate(a Attendee, reg *schedule.Registry, now time.Time) Eligibility {
	el := Eligibility{AttendeeID: a.ID, EvaluatedAt: now}
	for _, day := range reg.Days() {
		rec := a.Day(day)
		for _, s := range reg.Day(day) {
			w := schedule.Evaluate(s, now)
			o := Option{Day: day, Session: s.Key, Display: s.Display, Window: w}
			o.State, o.Reason = decide(a, day, rec, s, w)
			el.Options = append(el.Options, o)
		}
	}
	return el
}

func decide(a Attendee, day int, rec DayRecord, s schedule.Session, w schedule.Window) (State, string) {
	if rec.Attended && rec.Session == s.Key {
		return LockedComplete, "already recorded"
	}
	if day > 1 {
		if !a.Day(day - 1).Attended {
			return LockedPrerequisite, fmt.Sprintf("day %d attendance required first", day-1)
		}
		if !w.Available {
			return LockedPrerequisite, fmt.Sprintf("day %d is not today", day)
		}
	}
	if rec.Attended {
		// one session per day: a different session closes the whole day
		return LockedComplete, fmt.Sprintf("day %d already recorded for %s", day, rec.Session)
	}
	if !w.Active {
		return UnavailableTime, w.Status
	}
	return Available, ""
}
