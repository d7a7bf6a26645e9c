package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/live"
	"confattend/internal/queue"
	"confattend/internal/schedule"
	"confattend/internal/store"
	"confattend/internal/zones"
)

type harness struct {
	svc    *Service
	clock  *schedule.FixedClock
	jobs   *queue.InMemory
	broker *live.Memory
	timers *fakeTimers
	db     *store.DB
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := store.NewDB(ctx, store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	h := &harness{
		clock:  schedule.NewFixedClock(now),
		jobs:   queue.NewInMemory(16),
		broker: live.NewMemory(),
		timers: &fakeTimers{},
		db:     db,
	}
	h.svc = NewService(NewRepository(db), schedule.DefaultRegistry(), h.clock, zones.NewMemory(zones.Defaults), h.broker, h.jobs, 2*time.Second)
	h.svc.auto.after = h.timers.after
	return h
}

func (h *harness) register(t *testing.T, name, mobile string) Attendee {
	t.Helper()
	a, err := h.svc.Register(context.Background(), Profile{Name: name, Mobile: mobile, Designation: "Delegate", Zone: "Jammu"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return a
}

func (h *harness) queued() int {
	return len(h.jobsChan())
}

func (h *harness) jobsChan() []queue.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ch, _ := h.jobs.Consume(ctx)
	var out []queue.Message
	for m := range ch {
		out = append(out, m)
	}
	return out
}

func TestRecord_SelfServiceMorning(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:30"))
	a := h.register(t, "asha verma", "9876543210")

	l, err := h.svc.Search(ctx, "98765 43210", false)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if l.Decision.Kind != DecisionSingle || l.Decision.Proposed.Session != schedule.Morning {
		t.Fatalf("unexpected decision %+v", l.Decision)
	}

	res, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Morning, Mode: SelfService})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !res.Record.Attended || res.Record.Session != schedule.Morning || res.Record.LateMinutes != 0 || res.Record.ManualEntry {
		t.Fatalf("unexpected record %+v", res.Record)
	}
	if !res.Celebrate {
		t.Fatal("day 1 self-service must celebrate")
	}

	stored, err := h.svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Day1.Attended || stored.Day1.Session != schedule.Morning || stored.Day1.CheckinAt == nil {
		t.Fatalf("record not persisted: %+v", stored.Day1)
	}
	if !stored.Day1.CheckinAt.Equal(at("2025-10-25", "10:30")) {
		t.Fatalf("unexpected check-in timestamp %v", stored.Day1.CheckinAt)
	}

	msgs := h.jobsChan()
	if len(msgs) != 1 || msgs[0].Type != CelebrationJob {
		t.Fatalf("expected one celebration job, got %+v", msgs)
	}
	var c Celebration
	if err := msgs[0].Decode(&c); err != nil || c.AttendeeID != a.ID || c.Display != "Morning 10:00 AM" {
		t.Fatalf("unexpected celebration %+v (%v)", c, err)
	}
}

func TestRecord_ManualLateness(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "15:40"))
	a := h.register(t, "Ravi Kumar", "9123456780")

	res, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Afternoon, Mode: Manual, Remarks: " arrived by bus "})
	if err != nil {
		t.Fatalf("manual record: %v", err)
	}
	if res.Record.LateMinutes != 23 {
		t.Fatalf("expected 23 late minutes, got %d", res.Record.LateMinutes)
	}
	if !res.Record.ManualEntry || res.Record.ManualEntryTime != "15:40" || res.Record.Remarks != "arrived by bus" {
		t.Fatalf("unexpected manual record %+v", res.Record)
	}
	if res.Celebrate {
		t.Fatal("manual entries do not celebrate")
	}
	if h.queued() != 0 {
		t.Fatal("manual entries must not enqueue a celebration")
	}
}

func TestRecord_ManualBeforeEndRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "15:17"))
	a := h.register(t, "Ravi Kumar", "9123456780")
	_, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Afternoon, Mode: Manual})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition failure at the end instant, got %v", err)
	}
}

func TestRecord_Day2WithoutDay1(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-26", "14:30"))
	a := h.register(t, "Meera", "9000000001")
	_, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 2, Session: schedule.Afternoon, Mode: SelfService})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	stored, _ := h.svc.Get(ctx, a.ID)
	if stored.Day2.Attended {
		t.Fatal("rejected recording mutated the attendee")
	}
}

func TestRecord_SecondSessionSameDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:00"))
	a := h.register(t, "Meera", "9000000001")
	if _, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Morning, Mode: SelfService}); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(at("2025-10-25", "14:45"))
	l, err := h.svc.Search(ctx, "9000000001", false)
	if err != nil {
		t.Fatal(err)
	}
	if l.Decision.Kind != DecisionNone {
		t.Fatalf("expected nothing selectable, got %+v", l.Decision)
	}
	_, err = h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Afternoon, Mode: SelfService})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

type countingStore struct {
	Store
	calls int
}

func (c *countingStore) FindByMobile(ctx context.Context, mobile string) (Attendee, error) {
	c.calls++
	return Attendee{}, apperr.NotFound("no attendee")
}

func TestSearch_MalformedMobileSkipsStore(t *testing.T) {
	st := &countingStore{}
	svc := NewService(st, schedule.DefaultRegistry(), schedule.NewFixedClock(at("2025-10-25", "10:30")), zones.NewMemory(nil), nil, nil, time.Second)
	_, err := svc.Search(context.Background(), "12345", false)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.calls != 0 {
		t.Fatalf("store queried %d times for a malformed number", st.calls)
	}
	if _, err := svc.Search(context.Background(), "9999999999", false); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecord_IdempotentWhenLocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:00"))
	a := h.register(t, "Meera", "9000000001")
	if _, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Morning, Mode: SelfService}); err != nil {
		t.Fatal(err)
	}
	first, _ := h.svc.Get(ctx, a.ID)

	h.clock.Set(at("2025-10-25", "10:45"))
	_, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Morning, Mode: SelfService})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	h.clock.Set(at("2025-10-25", "19:30"))
	_, err = h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Evening, Mode: Manual})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("manual entry over a recorded day must fail, got %v", err)
	}

	second, _ := h.svc.Get(ctx, a.ID)
	if second.Day1.Session != first.Day1.Session || second.Day1.LateMinutes != first.Day1.LateMinutes || !second.Day1.CheckinAt.Equal(*first.Day1.CheckinAt) {
		t.Fatalf("locked day mutated: %+v -> %+v", first.Day1, second.Day1)
	}
	if got := len(h.jobsChan()); got != 1 {
		t.Fatalf("expected exactly one celebration, got %d", got)
	}
}

func TestRecordDay_ConditionalWriteRejectsLostRace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:00"))
	a := h.register(t, "Meera", "9000000001")
	repo := NewRepository(h.db)
	now := h.clock.Now()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, key := range []schedule.Key{schedule.Morning, schedule.Afternoon, schedule.Evening} {
		wg.Add(1)
		go func(key schedule.Key) {
			defer wg.Done()
			err := repo.RecordDay(ctx, a.ID, 1, DayRecord{Attended: true, Session: key, CheckinAt: &now}, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case !apperr.Is(err, apperr.KindPrecondition):
				t.Errorf("unexpected error %v", err)
			}
		}(key)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winning write, got %d", wins)
	}
}

func TestRecord_UnknownSessionAndAttendee(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:00"))
	if _, err := h.svc.Record(ctx, RecordInput{AttendeeID: "x", Day: 3, Session: schedule.Morning, Mode: SelfService}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown day, got %v", err)
	}
	if _, err := h.svc.Record(ctx, RecordInput{AttendeeID: "missing", Day: 1, Session: schedule.Morning, Mode: SelfService}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecord_PublishesLiveUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:00"))
	a := h.register(t, "Meera", "9000000001")
	events, cancel, _ := h.broker.Subscribe(ctx, a.ID)
	defer cancel()
	if _, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Morning, Mode: SelfService}); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-events:
		if evt.Type != live.AttendeeUpdated || evt.Day != 1 {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no live event published")
	}
}

func TestAutoMark_RecordsSingleOption(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:30"))
	a := h.register(t, "Meera", "9000000001")
	l, err := h.svc.Search(ctx, "9000000001", true)
	if err != nil {
		t.Fatal(err)
	}
	if l.AutoMarkAt == nil || !l.AutoMarkAt.Equal(at("2025-10-25", "10:30").Add(2*time.Second)) {
		t.Fatalf("expected auto mark in 2s, got %v", l.AutoMarkAt)
	}
	h.timers.fire(0)
	stored, _ := h.svc.Get(ctx, a.ID)
	if !stored.Day1.Attended || stored.Day1.Session != schedule.Morning || stored.Day1.ManualEntry {
		t.Fatalf("auto-selection did not record self-service: %+v", stored.Day1)
	}
}

func TestAutoMark_CancelledByOtherRecording(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:30"))
	a := h.register(t, "Meera", "9000000001")
	if _, err := h.svc.Search(ctx, "9000000001", true); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Record(ctx, RecordInput{AttendeeID: a.ID, Day: 1, Session: schedule.Morning, Mode: SelfService}); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := h.svc.auto.Pending(a.ID); ok {
		t.Fatal("recording must clear the pending timer")
	}
	h.timers.fire(0)
	if got := len(h.jobsChan()); got != 1 {
		t.Fatalf("expected a single celebration, got %d", got)
	}
}

func TestAutoMark_StaleWhenWindowCloses(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "11:09"))
	a := h.register(t, "Meera", "9000000001")
	if _, err := h.svc.Search(ctx, "9000000001", true); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(at("2025-10-25", "11:12"))
	h.timers.fire(0)
	stored, _ := h.svc.Get(ctx, a.ID)
	if stored.Day1.Attended {
		t.Fatal("auto-selection recorded after the window closed")
	}
}

func TestAutoMark_SkippedWhileManualInFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "10:30"))
	a := h.register(t, "Meera", "9000000001")
	if _, err := h.svc.Search(ctx, "9000000001", true); err != nil {
		t.Fatal(err)
	}
	h.svc.beginManual(a.ID)
	h.timers.fire(0)
	h.svc.endManual(a.ID)
	stored, _ := h.svc.Get(ctx, a.ID)
	if stored.Day1.Attended {
		t.Fatal("auto-selection raced a manual recording")
	}
}

func TestSearch_NoArmWhenMultipleOrNone(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("2025-10-25", "12:30"))
	h.register(t, "Meera", "9000000001")
	l, err := h.svc.Search(ctx, "9000000001", true)
	if err != nil {
		t.Fatal(err)
	}
	if l.Decision.Kind != DecisionNone || l.AutoMarkAt != nil || h.timers.count() != 0 {
		t.Fatalf("no timer may be armed without a single option: %+v", l)
	}
}
