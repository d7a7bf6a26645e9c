package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key names one of the three sessions of an event day.
type Key string

const (
	Morning   Key = "morning"
	Afternoon Key = "afternoon"
	Evening   Key = "evening"
)

var keyOrder = map[Key]int{Morning: 0, Afternoon: 1, Evening: 2}

// ParseKey accepts a session key in any letter case.
func ParseKey(s string) (Key, bool) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	_, ok := keyOrder[k]
	return k, ok
}

// ClockTime is a local time of day in minutes since midnight.
type ClockTime int

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock time %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q: bad minute", s)
	}
	return ClockTime(h*60 + m), nil
}

// MustClock is ParseClock for static tables.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ClockOf returns the IST time of day of t.
func ClockOf(t time.Time) ClockTime {
	l := t.In(IST)
	return ClockTime(l.Hour()*60 + l.Minute())
}

const dateLayout = "2006-01-02"

// DateOf returns the IST calendar date of t as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.In(IST).Format(dateLayout)
}

// Session is the static definition of one attendance window.
type Session struct {
	Day           int       `json:"day"`
	Key           Key       `json:"session"`
	Start         ClockTime `json:"start"`
	End           ClockTime `json:"end"`
	Date          string    `json:"date"`
	BufferMinutes int       `json:"buffer_minutes"`
	Display       string    `json:"display"`
}

// Malformed reports a window whose end is not after its start.
// Such a session is never active and is not corrected.
func (s Session) Malformed() bool {
	return s.End <= s.Start
}

// Instants anchors the session's clock times to its calendar date in IST.
func (s Session) Instants() (start, end time.Time, err error) {
	day, err := time.ParseInLocation(dateLayout, s.Date, IST)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("session day %d %s: %w", s.Day, s.Key, err)
	}
	start = day.Add(time.Duration(s.Start) * time.Minute)
	end = day.Add(time.Duration(s.End) * time.Minute)
	return start, end, nil
}

func (s Session) buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}
