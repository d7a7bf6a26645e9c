package schedule

import (
	"testing"
	"time"
)

func at(date, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, IST)
	if err != nil {
		panic(err)
	}
	return t
}

func day1Morning(t *testing.T) Session {
	t.Helper()
	s, ok := DefaultRegistry().Lookup(1, Morning)
	if !ok {
		t.Fatal("day 1 morning missing")
	}
	return s
}

func TestEvaluate_Phases(t *testing.T) {
	s := day1Morning(t)
	cases := []struct {
		clock  string
		phase  Phase
		status string
		active bool
		buffer bool
	}{
		{"09:00", PhaseUpcoming, "Starts at 09:45", false, false},
		{"09:30", PhaseStartingSoon, StatusStartingSoon, false, true},
		{"09:45", PhaseActive, StatusActive, true, false},
		{"10:30", PhaseActive, StatusActive, true, false},
		{"11:10", PhaseActive, StatusActive, true, false},
		{"11:11", PhaseJustEnded, StatusJustEnded, false, true},
		{"11:25", PhaseJustEnded, StatusJustEnded, false, true},
		{"11:26", PhaseEnded, StatusEnded, false, false},
	}
	for _, tc := range cases {
		w := Evaluate(s, at("2025-10-25", tc.clock))
		if w.Phase != tc.phase || w.Status != tc.status || w.Active != tc.active || w.InBuffer != tc.buffer {
			t.Fatalf("%s: got phase=%s status=%q active=%v buffer=%v", tc.clock, w.Phase, w.Status, w.Active, w.InBuffer)
		}
		if !w.Available {
			t.Fatalf("%s: expected session to be available on its date", tc.clock)
		}
	}
}

func TestEvaluate_ActiveIndependentOfBuffer(t *testing.T) {
	base := day1Morning(t)
	for _, buf := range []int{0, 1, 15, 120} {
		s := base
		s.BufferMinutes = buf
		for m := 0; m < 24*60; m += 7 {
			now := at("2025-10-25", ClockTime(m).String())
			w := Evaluate(s, now)
			want := ClockTime(m) >= s.Start && ClockTime(m) <= s.End
			if w.Active != want {
				t.Fatalf("buffer=%d at %s: active=%v want %v", buf, ClockTime(m), w.Active, want)
			}
		}
	}
}

func TestEvaluate_OtherDateIsNotToday(t *testing.T) {
	s := day1Morning(t)
	w := Evaluate(s, at("2025-10-26", "10:30"))
	if w.Available || w.Active || w.InBuffer {
		t.Fatalf("expected categorical unavailability, got %+v", w)
	}
	if w.Status != StatusNotToday || w.Phase != PhaseNotToday {
		t.Fatalf("unexpected status %q / %s", w.Status, w.Phase)
	}
}

func TestEvaluate_HostZoneIgnored(t *testing.T) {
	s := day1Morning(t)
	// 05:00 UTC is 10:30 IST.
	now := time.Date(2025, 10, 25, 5, 0, 0, 0, time.UTC)
	if w := Evaluate(s, now); !w.Active {
		t.Fatalf("expected active at 10:30 IST, got %+v", w)
	}
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	if w := Evaluate(s, now.In(ny)); !w.Active {
		t.Fatalf("evaluation changed with the instant's location: %+v", w)
	}
}

func TestEvaluate_MalformedNeverActive(t *testing.T) {
	s := Session{Day: 1, Key: Afternoon, Start: MustClock("14:30"), End: MustClock("13:17"), Date: "2025-10-25", BufferMinutes: 15}
	for _, clock := range []string{"13:00", "13:17", "14:00", "14:30", "15:00"} {
		w := Evaluate(s, at("2025-10-25", clock))
		if w.Active || w.InBuffer || w.Phase != PhaseMalformed {
			t.Fatalf("%s: malformed window evaluated as %+v", clock, w)
		}
	}
	if Ended(s, at("2025-10-25", "23:00")) {
		t.Fatal("malformed window must never count as ended")
	}
}

func TestLateMinutes(t *testing.T) {
	reg := DefaultRegistry()
	s, _ := reg.Lookup(1, Afternoon)
	if got := LateMinutes(s, MustClock("15:40")); got != 23 {
		t.Fatalf("expected 23 late minutes, got %d", got)
	}
	for m := 0; m <= int(s.End); m++ {
		if got := LateMinutes(s, ClockTime(m)); got != 0 {
			t.Fatalf("entry %s at or before end must not be late, got %d", ClockTime(m), got)
		}
	}
	prev := 0
	for m := int(s.End); m < 24*60; m++ {
		got := LateMinutes(s, ClockTime(m))
		if got < prev {
			t.Fatalf("lateness decreased at %s", ClockTime(m))
		}
		prev = got
	}
}

func TestEnded(t *testing.T) {
	s := day1Morning(t)
	if Ended(s, at("2025-10-25", "11:10")) {
		t.Fatal("session end instant itself is not after end")
	}
	if !Ended(s, at("2025-10-25", "11:11")) {
		t.Fatal("expected ended one minute after end")
	}
	if !Ended(s, at("2025-10-26", "08:00")) {
		t.Fatal("expected ended on the following day")
	}
}

func TestClockOf(t *testing.T) {
	now := time.Date(2025, 10, 25, 10, 10, 0, 0, time.UTC)
	if got := ClockOf(now).String(); got != "15:40" {
		t.Fatalf("expected 15:40 IST, got %s", got)
	}
}
