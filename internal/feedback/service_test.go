package feedback

import (
	"context"
	"strings"
	"testing"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/attendance"
	"confattend/internal/schedule"
	"confattend/internal/store"
)

type fakeFinder struct {
	byMobile map[string]attendance.Attendee
	calls    int
}

func (f *fakeFinder) FindByMobile(_ context.Context, mobile string) (attendance.Attendee, error) {
	f.calls++
	a, ok := f.byMobile[mobile]
	if !ok {
		return attendance.Attendee{}, apperr.NotFound("no attendee registered with mobile %s", mobile)
	}
	return a, nil
}

func newTestService(t *testing.T) (*Service, *fakeFinder, *schedule.FixedClock) {
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
	finder := &fakeFinder{byMobile: map[string]attendance.Attendee{
		"9000000001": {ID: "a-1", Name: "Asha Verma", Mobile: "9000000001"},
	}}
	clock := schedule.NewFixedClock(time.Date(2025, 10, 25, 12, 0, 0, 0, schedule.IST))
	return NewService(NewRepository(db), finder, clock), finder, clock
}

func TestSubmitGeneral(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	f, err := svc.SubmitGeneral(ctx, GeneralInput{Name: " Ravi ", Category: "venue", Message: " Great hall ", Rating: 4, Sentiment: SentimentPositive})
	if err != nil {
		t.Fatal(err)
	}
	if f.Status != StatusNew || f.Flow != FlowGeneral || f.Message != "Great hall" || f.Name != "Ravi" {
		t.Fatalf("unexpected feedback %+v", f)
	}
	stored, err := svc.Get(ctx, f.ID)
	if err != nil || stored.Category != "venue" || stored.Sentiment != SentimentPositive {
		t.Fatalf("not persisted: %+v (%v)", stored, err)
	}

	bad := []GeneralInput{
		{Message: "  "},
		{Message: "ok", Category: "parking"},
		{Message: "ok", Rating: 6},
		{Message: "ok", Sentiment: "meh"},
		{Message: "ok", Email: "not-an-email"},
	}
	for _, in := range bad {
		if _, err := svc.SubmitGeneral(ctx, in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%+v: expected validation error, got %v", in, err)
		}
	}
}

func TestSubmitAttendee(t *testing.T) {
	ctx := context.Background()
	svc, finder, _ := newTestService(t)

	f, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "90000 00001", Type: "appreciation", Message: "Loved the keynote"})
	if err != nil {
		t.Fatal(err)
	}
	if f.Rating != 5 || f.Status != StatusPending || f.AttendeeID != "a-1" || f.Name != "Asha Verma" || f.Category != "appreciation" {
		t.Fatalf("unexpected feedback %+v", f)
	}

	finder.calls = 0
	if _, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "9000000001", Message: "  too short  "}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for short message, got %v", err)
	}
	if _, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "123", Message: strings.Repeat("x", 20)}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for bad mobile, got %v", err)
	}
	if finder.calls != 0 {
		t.Fatal("invalid input must not reach the attendee lookup")
	}
	if _, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "9999999999", Message: strings.Repeat("x", 20)}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmit_MessageLengthLimit(t *testing.T) {
	ctx := context.Background()
	svc, finder, _ := newTestService(t)

	longest := strings.Repeat("é", maxMessage)
	if _, err := svc.SubmitGeneral(ctx, GeneralInput{Message: longest}); err != nil {
		t.Fatalf("message at the limit must be accepted: %v", err)
	}
	if _, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "9000000001", Message: longest}); err != nil {
		t.Fatalf("attendee message at the limit must be accepted: %v", err)
	}

	finder.calls = 0
	over := longest + "!"
	if _, err := svc.SubmitGeneral(ctx, GeneralInput{Message: over}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for long general message, got %v", err)
	}
	if _, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "9000000001", Message: over}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for long attendee message, got %v", err)
	}
	if finder.calls != 0 {
		t.Fatal("an overlong message must not reach the attendee lookup")
	}
}

func TestGeneralLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)
	f, _ := svc.SubmitGeneral(ctx, GeneralInput{Message: "Need more chairs", Rating: 2})

	if _, err := svc.Reply(ctx, f.ID, "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty reply must fail, got %v", err)
	}
	clock.Advance(time.Hour)
	replied, err := svc.Reply(ctx, f.ID, "Added another row")
	if err != nil {
		t.Fatal(err)
	}
	if replied.Status != StatusReplied || replied.RepliedAt == nil || replied.Reply != "Added another row" {
		t.Fatalf("unexpected reply state %+v", replied)
	}
	if _, err := svc.SetStatus(ctx, f.ID, StatusPending); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("general feedback cannot become pending, got %v", err)
	}
	archived, err := svc.SetStatus(ctx, f.ID, StatusArchived)
	if err != nil || archived.Status != StatusArchived {
		t.Fatalf("archive failed: %+v (%v)", archived, err)
	}
	if _, err := svc.Reply(ctx, f.ID, "late answer"); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("archived feedback cannot be replied to, got %v", err)
	}
	stored, _ := svc.Get(ctx, f.ID)
	if stored.Status != StatusArchived || stored.Reply != "Added another row" || stored.RepliedAt == nil {
		t.Fatalf("unexpected stored state %+v", stored)
	}
}

func TestAttendeeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	f, _ := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "9000000001", Type: "complaint", Message: "Queue at lunch was long", Rating: 2})

	if _, err := svc.Reply(ctx, f.ID, "sorry"); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("attendee feedback has no reply flow, got %v", err)
	}
	reviewed, err := svc.SetStatus(ctx, f.ID, StatusReviewed)
	if err != nil || reviewed.ReviewedAt == nil {
		t.Fatalf("review failed: %+v (%v)", reviewed, err)
	}
	back, err := svc.SetStatus(ctx, f.ID, StatusPending)
	if err != nil || back.ReviewedAt != nil {
		t.Fatalf("reopen failed: %+v (%v)", back, err)
	}
	if _, err := svc.SetStatus(ctx, f.ID, StatusArchived); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("attendee feedback cannot be archived, got %v", err)
	}
}

func TestRepository_TransitionDetectsConcurrentChange(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	f, _ := svc.SubmitGeneral(ctx, GeneralInput{Message: "hello"})
	repo := svc.store

	next := f
	next.Status = StatusArchived
	if err := repo.Transition(ctx, f.ID, StatusNew, next); err != nil {
		t.Fatal(err)
	}
	if err := repo.Transition(ctx, f.ID, StatusNew, next); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("stale transition must fail, got %v", err)
	}
	if err := repo.Transition(ctx, "missing", StatusNew, next); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)
	inputs := []GeneralInput{
		{Message: "Food was cold", Category: "food", Rating: 1, Sentiment: SentimentNegative},
		{Message: "Speakers were great", Category: "speakers", Rating: 5, Sentiment: SentimentPositive},
		{Message: "No rating here", Category: "general"},
	}
	for _, in := range inputs {
		clock.Advance(time.Minute)
		if _, err := svc.SubmitGeneral(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	clock.Advance(time.Minute)
	af, err := svc.SubmitAttendee(ctx, AttendeeInput{Mobile: "9000000001", Message: "Well organised event", Rating: 4})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 4},
		{"flow", Filter{Flow: FlowAttendee}, 1},
		{"status", Filter{Status: StatusNew}, 3},
		{"sentiment", Filter{Sentiment: SentimentNegative}, 1},
		{"category", Filter{Category: "speakers"}, 1},
		{"search", Filter{Search: "COLD"}, 1},
		{"high", Filter{Rating: RatingHigh}, 2},
		{"low", Filter{Rating: RatingLow}, 1},
	}
	for _, tc := range cases {
		page, err := svc.List(ctx, tc.f)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if page.Total != tc.want || len(page.Items) != tc.want {
			t.Fatalf("%s: got %d/%d want %d", tc.name, len(page.Items), page.Total, tc.want)
		}
	}
	page, _ := svc.List(ctx, Filter{})
	if page.Items[0].ID != af.ID {
		t.Fatal("expected newest first")
	}
	if _, err := svc.List(ctx, Filter{Status: "done"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := svc.SetStatus(ctx, af.ID, StatusReviewed); err != nil {
		t.Fatal(err)
	}
	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 4 || st.Open != 3 || st.Closed != 1 {
		t.Fatalf("unexpected open/closed %+v", st)
	}
	if st.AverageRating != float64(1+5+4)/3 {
		t.Fatalf("unexpected average %v", st.AverageRating)
	}
	if st.HighRated != 2 || st.LowRated != 1 || st.Positive != 1 || st.Negative != 1 {
		t.Fatalf("unexpected bands %+v", st)
	}
	if st.ByFlow[FlowGeneral] != 3 || st.ByStatus[StatusReviewed] != 1 || st.ByCategory["food"] != 1 {
		t.Fatalf("unexpected breakdown %+v", st)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	f, _ := svc.SubmitGeneral(ctx, GeneralInput{Message: "bye"})
	if err := svc.Delete(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, f.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
