package attendance

import (
	"context"
	"strings"

	"confattend/internal/apperr"
	"confattend/internal/schedule"

	"github.com/google/uuid"
)

type AttendanceFilter string

const (
	AttendanceAll    AttendanceFilter = "all"
	AttendanceDay1   AttendanceFilter = "day1"
	AttendanceDay2   AttendanceFilter = "day2"
	AttendanceBoth   AttendanceFilter = "both"
	AttendanceNone   AttendanceFilter = "none"
	AttendanceManual AttendanceFilter = "manual"
	AttendanceLate   AttendanceFilter = "late"
)

const (
	defaultPerPage = 10
	maxPerPage     = 200
)

// Filter narrows the attendee list. Zero values mean "any".
type Filter struct {
	Search      string
	Zone        string
	Attendance  AttendanceFilter
	Day1Session schedule.Key
	Day2Session schedule.Key
	Page        int
	PerPage     int
}

func (f Filter) normalize() (Filter, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Zone = strings.TrimSpace(f.Zone)
	switch f.Attendance {
	case "", AttendanceAll:
		f.Attendance = AttendanceAll
	case AttendanceDay1, AttendanceDay2, AttendanceBoth, AttendanceNone, AttendanceManual, AttendanceLate:
	default:
		return Filter{}, apperr.Validation("unknown attendance filter %q", f.Attendance)
	}
	for _, k := range []schedule.Key{f.Day1Session, f.Day2Session} {
		if _, ok := schedule.ParseKey(string(k)); k != "" && !ok {
			return Filter{}, apperr.Validation("unknown session %q", k)
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	return f, nil
}

type Page struct {
	Items   []Attendee `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	f, err := f.normalize()
	if err != nil {
		return Page{}, err
	}
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Attendee{}
	}
	return Page{Items: items, Total: total, Page: f.Page, PerPage: f.PerPage}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Attendee, error) {
	return s.store.Get(ctx, id)
}

// Register creates an attendee with empty day records. The zone must be
// in the live zone list.
func (s *Service) Register(ctx context.Context, p Profile) (Attendee, error) {
	p = p.normalized()
	if err := p.validate(); err != nil {
		return Attendee{}, err
	}
	set, err := s.zones.List(ctx)
	if err != nil {
		return Attendee{}, err
	}
	zone, ok := set.Canonical(p.Zone)
	if !ok {
		return Attendee{}, apperr.Validation("unknown zone %q", p.Zone)
	}
	now := s.clock.Now().UTC()
	a := Attendee{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Mobile:      p.Mobile,
		Designation: p.Designation,
		Zone:        zone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Attendee{}, err
	}
	return a, nil
}

// UpdateInput is an administrative edit. Nil day records are left as stored.
type UpdateInput struct {
	Profile
	Day1 *DayRecord `json:"day1,omitempty"`
	Day2 *DayRecord `json:"day2,omitempty"`
}

// Update overwrites identity fields and, optionally, day records. It is
// the only path that may clear or change a recorded day.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Attendee, error) {
	p := in.Profile.normalized()
	if err := p.validate(); err != nil {
		return Attendee{}, err
	}
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Attendee{}, err
	}
	a.Name, a.Mobile, a.Designation, a.Zone = p.Name, p.Mobile, p.Designation, p.Zone
	days := make(map[int]DayRecord, 2)
	for d, rec := range [...]*DayRecord{1: in.Day1, 2: in.Day2} {
		if rec == nil {
			continue
		}
		r := *rec
		r.Remarks = strings.TrimSpace(r.Remarks)
		if err := r.Validate(s.reg, d); err != nil {
			return Attendee{}, err
		}
		if !r.Attended {
			r = DayRecord{Remarks: r.Remarks}
		}
		days[d] = r
	}
	a.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.Update(ctx, a, days); err != nil {
		return Attendee{}, err
	}
	s.auto.Cancel(id)
	s.notify(ctx, id, 0)
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.auto.Cancel(id)
	s.notify(ctx, id, 0)
	return nil
}
