// Package zones keeps the admin-managed, versioned list of region and
// department labels attendees are registered under.
package zones

import (
	"context"
	"slices"
	"strings"
	"sync"

	"confattend/internal/apperr"

	"golang.org/x/text/cases"
)

// Defaults seeds an empty store.
var Defaults = []string{
	"Poonch", "Mandi", "Mendher", "Surankote", "Rajouri", "Jammu", "Srinagar",
	"North East", "South", "Rajasthan", "Maharashta", "PR Department",
	"Academia Department", "Directorate", "UAE", "Not Applicable",
}

// Set is a snapshot of the zone list. Version increases on every change.
type Set struct {
	Version int64    `json:"version"`
	Zones   []string `json:"zones"`
}

// Contains matches labels case-insensitively.
func (s Set) Contains(label string) bool {
	return s.index(label) >= 0
}

// Canonical returns the set's own spelling of label.
func (s Set) Canonical(label string) (string, bool) {
	i := s.index(label)
	if i < 0 {
		return "", false
	}
	return s.Zones[i], true
}

func (s Set) index(label string) int {
	key := Key(label)
	return slices.IndexFunc(s.Zones, func(z string) bool { return Key(z) == key })
}

type Store interface {
	List(ctx context.Context) (Set, error)
	Add(ctx context.Context, label string) (Set, error)
	Remove(ctx context.Context, label string) (Set, error)
}

var fold = cases.Fold()

// Key is the case-insensitive identity of a label.
func Key(label string) string {
	return fold.String(Normalize(label))
}

// Normalize trims and collapses inner whitespace.
func Normalize(label string) string {
	return strings.Join(strings.Fields(label), " ")
}

func validLabel(label string) (string, error) {
	l := Normalize(label)
	if l == "" {
		return "", apperr.Validation("zone label is required")
	}
	if len(l) > 64 {
		return "", apperr.Validation("zone label is too long")
	}
	return l, nil
}

type Memory struct {
	mu  sync.Mutex
	set Set
}

func NewMemory(seed []string) *Memory {
	return &Memory{set: Set{Version: 1, Zones: slices.Clone(seed)}}
}

func (m *Memory) List(context.Context) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Set{Version: m.set.Version, Zones: slices.Clone(m.set.Zones)}, nil
}

func (m *Memory) Add(_ context.Context, label string) (Set, error) {
	l, err := validLabel(label)
	if err != nil {
		return Set{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set.Contains(l) {
		return Set{}, apperr.Precondition("zone %q already exists", l)
	}
	m.set.Zones = append(m.set.Zones, l)
	m.set.Version++
	return Set{Version: m.set.Version, Zones: slices.Clone(m.set.Zones)}, nil
}

func (m *Memory) Remove(_ context.Context, label string) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.set.index(label)
	if i < 0 {
		return Set{}, apperr.NotFound("zone %q not found", Normalize(label))
	}
	m.set.Zones = slices.Delete(m.set.Zones, i, i+1)
	m.set.Version++
	return Set{Version: m.set.Version, Zones: slices.Clone(m.set.Zones)}, nil
}
