package attendance

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/live"
	"confattend/internal/metrics"
	"confattend/internal/queue"
	"confattend/internal/schedule"
	"confattend/internal/zones"
)

// Mode distinguishes attendee-initiated from administrator recordings.
type Mode string

const (
	SelfService Mode = "self-service"
	Manual      Mode = "manual"
)

// CelebrationJob is the queue message type sent after a day-1 self check-in.
const CelebrationJob = "celebration"

// Celebration is the body of a CelebrationJob.
type Celebration struct {
	AttendeeID string       `json:"attendee_id"`
	Name       string       `json:"name"`
	Day        int          `json:"day"`
	Session    schedule.Key `json:"session"`
	Display    string       `json:"display"`
	At         time.Time    `json:"at"`
}

// Service coordinates eligibility, recording and attendee administration.
type Service struct {
	store  Store
	reg    *schedule.Registry
	clock  schedule.Clock
	zones  zones.Store
	broker live.Broker
	jobs   queue.Queue
	auto   *AutoMarker

	mu     sync.Mutex
	manual map[string]int
}

// NewService wires the recorder and its auto-selection timer.
func NewService(st Store, reg *schedule.Registry, clock schedule.Clock, zs zones.Store, broker live.Broker, jobs queue.Queue, autoDelay time.Duration) *Service {
	s := &Service{
		store:  st,
		reg:    reg,
		clock:  clock,
		zones:  zs,
		broker: broker,
		jobs:   jobs,
		manual: make(map[string]int),
	}
	s.auto = newAutoMarker(autoDelay, s.autoFire)
	return s
}

func (s *Service) Registry() *schedule.Registry { return s.reg }

// Lookup is an attendee with its current eligibility and auto-selection.
type Lookup struct {
	Attendee    Attendee    `json:"attendee"`
	Eligibility Eligibility `json:"eligibility"`
	Decision    Decision    `json:"decision"`
	AutoMarkAt  *time.Time  `json:"auto_mark_at,omitempty"`
}

// Search finds an attendee by mobile. A malformed number is rejected
// before any store access. With arm set, a single available option
// schedules an automatic self-service recording.
func (s *Service) Search(ctx context.Context, mobile string, arm bool) (Lookup, error) {
	mobile = NormalizeMobile(mobile)
	if !ValidMobile(mobile) {
		return Lookup{}, apperr.Validation("mobile number must be exactly 10 digits")
	}
	a, err := s.store.FindByMobile(ctx, mobile)
	if err != nil {
		return Lookup{}, err
	}
	return s.evaluate(a, arm), nil
}

// Snapshot re-evaluates a known attendee.
func (s *Service) Snapshot(ctx context.Context, attendeeID string, arm bool) (Lookup, error) {
	a, err := s.store.Get(ctx, attendeeID)
	if err != nil {
		return Lookup{}, err
	}
	return s.evaluate(a, arm), nil
}

func (s *Service) evaluate(a Attendee, arm bool) Lookup {
	now := s.clock.Now()
	el := Evaluate(a, s.reg, now)
	l := Lookup{Attendee: a, Eligibility: el, Decision: Decide(el)}
	switch {
	case l.Decision.Kind != DecisionSingle:
		s.auto.Cancel(a.ID)
	case arm:
		p := l.Decision.Proposed
		due := s.auto.Arm(a.ID, p.Day, p.Session, now)
		l.AutoMarkAt = &due
	}
	return l
}

// CancelAutoMark clears a pending automatic recording.
func (s *Service) CancelAutoMark(attendeeID string) bool {
	return s.auto.Cancel(attendeeID)
}

type RecordInput struct {
	AttendeeID string
	Day        int
	Session    schedule.Key
	Mode       Mode
	Remarks    string
}

type Result struct {
	Attendee  Attendee  `json:"attendee"`
	Day       int       `json:"day"`
	Record    DayRecord `json:"record"`
	Celebrate bool      `json:"celebrate"`
}

// Record applies a check-in. Self-service requires the option to be
// available now; manual requires the session to have fully ended and
// computes lateness from the session end.
func (s *Service) Record(ctx context.Context, in RecordInput) (Result, error) {
	res, err := s.record(ctx, in)
	if err != nil {
		metrics.CheckInRejections.WithLabelValues(apperr.KindOf(err).String()).Inc()
		slog.Debug("attendance rejected", "attendee_id", in.AttendeeID, "day", in.Day, "session", in.Session, "mode", in.Mode, "error", err)
	}
	return res, err
}

// CheckIn is the attendee-initiated recording.
func (s *Service) CheckIn(ctx context.Context, attendeeID string, day int, key schedule.Key) (Result, error) {
	return s.Record(ctx, RecordInput{AttendeeID: attendeeID, Day: day, Session: key, Mode: SelfService})
}

// MarkManual is the administrator recording after a session has ended.
func (s *Service) MarkManual(ctx context.Context, attendeeID string, day int, key schedule.Key, remarks string) (Result, error) {
	return s.Record(ctx, RecordInput{AttendeeID: attendeeID, Day: day, Session: key, Mode: Manual, Remarks: remarks})
}

func (s *Service) record(ctx context.Context, in RecordInput) (Result, error) {
	if in.Mode != SelfService && in.Mode != Manual {
		return Result{}, apperr.Validation("unknown mode %q", in.Mode)
	}
	sess, ok := s.reg.Lookup(in.Day, in.Session)
	if !ok {
		return Result{}, apperr.Validation("unknown session day %d %q", in.Day, in.Session)
	}
	if in.Mode == Manual {
		s.beginManual(in.AttendeeID)
		defer s.endManual(in.AttendeeID)
	}

	a, err := s.store.Get(ctx, in.AttendeeID)
	if err != nil {
		return Result{}, err
	}
	now := s.clock.Now()

	rec := DayRecord{Attended: true, Session: in.Session, ManualEntry: in.Mode == Manual, CheckinAt: &now}
	switch in.Mode {
	case SelfService:
		opt, _ := Evaluate(a, s.reg, now).Option(in.Day, in.Session)
		if opt.State != Available {
			return Result{}, apperr.Precondition("session no longer active: %s", opt.Reason)
		}
	case Manual:
		if prev := a.Day(in.Day); prev.Attended {
			return Result{}, apperr.Precondition("day %d already recorded for %s", in.Day, prev.Session)
		}
		if sess.Malformed() {
			return Result{}, apperr.Precondition("session window %s-%s is malformed", sess.Start, sess.End)
		}
		if !schedule.Ended(sess, now) {
			return Result{}, apperr.Precondition("manual entry is allowed only after the session ends at %s", sess.End)
		}
		entry := schedule.ClockOf(now)
		rec.LateMinutes = schedule.LateMinutes(sess, entry)
		rec.ManualEntryTime = entry.String()
		rec.Remarks = strings.TrimSpace(in.Remarks)
	}

	if err := s.store.RecordDay(ctx, a.ID, in.Day, rec, now); err != nil {
		return Result{}, err
	}
	a.setDay(in.Day, rec)
	a.UpdatedAt = now
	s.auto.Cancel(a.ID)
	metrics.CheckIns.WithLabelValues(metrics.Day(in.Day), string(in.Session), string(in.Mode)).Inc()
	slog.Info("attendance recorded", "attendee_id", a.ID, "day", in.Day, "session", in.Session, "mode", in.Mode, "late_minutes", rec.LateMinutes)

	res := Result{Attendee: a, Day: in.Day, Record: rec}
	s.notify(ctx, a.ID, in.Day)
	if in.Day == 1 && in.Mode == SelfService {
		res.Celebrate = true
		s.celebrate(ctx, a, sess, now)
	}
	return res, nil
}

func (s *Service) beginManual(id string) {
	s.mu.Lock()
	s.manual[id]++
	s.mu.Unlock()
}

func (s *Service) endManual(id string) {
	s.mu.Lock()
	if s.manual[id]--; s.manual[id] <= 0 {
		delete(s.manual, id)
	}
	s.mu.Unlock()
}

func (s *Service) manualInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manual[id] > 0
}

// autoFire runs when an armed timer expires. The proposal only goes
// through if it is still the single available option.
func (s *Service) autoFire(ctx context.Context, id string, day int, key schedule.Key) string {
	if s.manualInFlight(id) {
		return "skipped_manual"
	}
	a, err := s.store.Get(ctx, id)
	if err != nil {
		slog.Warn("auto-selection lookup failed", "attendee_id", id, "error", err)
		return "error"
	}
	d := Decide(Evaluate(a, s.reg, s.clock.Now()))
	if d.Kind != DecisionSingle || d.Proposed.Day != day || d.Proposed.Session != key {
		return "stale"
	}
	if _, err := s.Record(ctx, RecordInput{AttendeeID: id, Day: day, Session: key, Mode: SelfService}); err != nil {
		if apperr.Is(err, apperr.KindPrecondition) {
			return "rejected"
		}
		slog.Warn("auto-selection record failed", "attendee_id", id, "error", err)
		return "error"
	}
	return "recorded"
}

// notify is best effort; watchers also poll.
func (s *Service) notify(ctx context.Context, id string, day int) {
	if s.broker == nil {
		return
	}
	evt := live.Event{Type: live.AttendeeUpdated, AttendeeID: id, Day: day, At: s.clock.Now()}
	if err := s.broker.Publish(ctx, evt); err != nil {
		slog.Warn("live publish failed", "attendee_id", id, "error", err)
	}
}

// celebrate enqueues the welcome announcement. Failures are cosmetic.
func (s *Service) celebrate(ctx context.Context, a Attendee, sess schedule.Session, at time.Time) {
	if s.jobs == nil {
		return
	}
	msg, err := queue.NewMessage(CelebrationJob, Celebration{
		AttendeeID: a.ID,
		Name:       a.Name,
		Day:        sess.Day,
		Session:    sess.Key,
		Display:    sess.Display,
		At:         at,
	})
	if err == nil {
		err = s.jobs.Publish(ctx, msg)
	}
	if err != nil {
		slog.Warn("celebration enqueue failed", "attendee_id", a.ID, "error", err)
	}
}
