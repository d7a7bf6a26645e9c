package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Registry is the read-only table of event sessions.
type Registry struct {
	days map[int][]Session
}

// NewRegistry orders sessions per day from morning to evening.
func NewRegistry(sessions []Session) *Registry {
	r := &Registry{days: make(map[int][]Session)}
	for _, s := range sessions {
		r.days[s.Day] = append(r.days[s.Day], s)
	}
	for d := range r.days {
		list := r.days[d]
		sort.SliceStable(list, func(i, j int) bool { return keyOrder[list[i].Key] < keyOrder[list[j].Key] })
	}
	return r
}

const defaultBuffer = 15

// DefaultRegistry returns the two-day conference timetable.
func DefaultRegistry() *Registry {
	return NewRegistry([]Session{
		{Day: 1, Key: Morning, Start: MustClock("09:45"), End: MustClock("11:10"), Date: "2025-10-25", BufferMinutes: defaultBuffer, Display: "Morning 10:00 AM"},
		{Day: 1, Key: Afternoon, Start: MustClock("14:30"), End: MustClock("15:17"), Date: "2025-10-25", BufferMinutes: defaultBuffer, Display: "Afternoon 2:30 PM"},
		{Day: 1, Key: Evening, Start: MustClock("18:15"), End: MustClock("18:50"), Date: "2025-10-25", BufferMinutes: defaultBuffer, Display: "Evening 6:20 PM"},
		{Day: 2, Key: Morning, Start: MustClock("08:15"), End: MustClock("08:45"), Date: "2025-10-26", BufferMinutes: defaultBuffer, Display: "Morning 8:30 AM"},
		{Day: 2, Key: Afternoon, Start: MustClock("14:15"), End: MustClock("16:45"), Date: "2025-10-26", BufferMinutes: defaultBuffer, Display: "Afternoon 2:30 PM"},
		{Day: 2, Key: Evening, Start: MustClock("18:30"), End: MustClock("21:00"), Date: "2025-10-26", BufferMinutes: defaultBuffer, Display: "Evening 7:00 PM"},
	})
}

// Lookup returns the session for (day, key); ok is false when unknown.
func (r *Registry) Lookup(day int, key Key) (Session, bool) {
	for _, s := range r.days[day] {
		if s.Key == key {
			return s, true
		}
	}
	return Session{}, false
}

// Day returns the sessions of a day in timetable order.
func (r *Registry) Day(day int) []Session {
	out := make([]Session, len(r.days[day]))
	copy(out, r.days[day])
	return out
}

// Days returns the configured day numbers in ascending order.
func (r *Registry) Days() []int {
	out := make([]int, 0, len(r.days))
	for d := range r.days {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func (r *Registry) All() []Session {
	var out []Session
	for _, d := range r.Days() {
		out = append(out, r.days[d]...)
	}
	return out
}

// Validate reports every inconsistency in the table. Malformed windows
// are reported but stay in the registry as permanently closed sessions.
func (r *Registry) Validate() []error {
	var errs []error
	for _, d := range r.Days() {
		if d != 1 && d != 2 {
			errs = append(errs, fmt.Errorf("day %d: only days 1 and 2 are supported", d))
		}
		seen := map[Key]bool{}
		list := r.days[d]
		for i, s := range list {
			if _, ok := keyOrder[s.Key]; !ok {
				errs = append(errs, fmt.Errorf("day %d: unknown session key %q", d, s.Key))
			}
			if seen[s.Key] {
				errs = append(errs, fmt.Errorf("day %d %s: defined twice", d, s.Key))
			}
			seen[s.Key] = true
			if _, err := time.ParseInLocation(dateLayout, s.Date, IST); err != nil {
				errs = append(errs, fmt.Errorf("day %d %s: bad date %q", d, s.Key, s.Date))
			}
			if s.BufferMinutes < 0 {
				errs = append(errs, fmt.Errorf("day %d %s: negative buffer", d, s.Key))
			}
			if s.Malformed() {
				errs = append(errs, fmt.Errorf("day %d %s: window %s-%s ends before it starts", d, s.Key, s.Start, s.End))
				continue
			}
			for _, o := range list[i+1:] {
				if o.Malformed() || o.Date != s.Date {
					continue
				}
				if s.Start < o.End && o.Start < s.End {
					errs = append(errs, fmt.Errorf("day %d: %s overlaps %s", d, s.Key, o.Key))
				}
			}
		}
	}
	return errs
}

type registryFile struct {
	Sessions []Session `json:"sessions"`
}

// LoadFile reads a JSON timetable of the form {"sessions": [...]}.
func LoadFile(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	var f registryFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode schedule file: %w", err)
	}
	if len(f.Sessions) == 0 {
		return nil, fmt.Errorf("schedule file %s has no sessions", path)
	}
	return NewRegistry(f.Sessions), nil
}
