package attendance

import (
	"strings"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/schedule"
)

// DayRecord is an attendee's attendance for one event day.
type DayRecord struct {
	Attended        bool         `json:"attended"`
	Session         schedule.Key `json:"session"`
	LateMinutes     int          `json:"late_minutes"`
	Remarks         string       `json:"remarks"`
	ManualEntry     bool         `json:"manual_entry"`
	ManualEntryTime string       `json:"manual_entry_time,omitempty"`
	CheckinAt       *time.Time   `json:"checkin_timestamp"`
}

// Attendee represents one registered participant.
type Attendee struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Mobile      string    `json:"mobile"`
	Designation string    `json:"designation"`
	Zone        string    `json:"zone"`
	Day1        DayRecord `json:"day1"`
	Day2        DayRecord `json:"day2"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Days are the event days an attendee carries a record for.
var Days = []int{1, 2}

func (a Attendee) Day(d int) DayRecord {
	if d == 2 {
		return a.Day2
	}
	if d == 1 {
		return a.Day1
	}
	return DayRecord{}
}

func (a *Attendee) setDay(d int, r DayRecord) {
	switch d {
	case 1:
		a.Day1 = r
	case 2:
		a.Day2 = r
	}
}

// ValidMobile reports an exactly 10-digit number.
func ValidMobile(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeMobile strips spaces and dashes a kiosk keyboard may add.
func NormalizeMobile(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// Validate checks the record invariants against the day's sessions.
func (r DayRecord) Validate(reg *schedule.Registry, day int) error {
	if r.LateMinutes < 0 {
		return apperr.Validation("day %d: late minutes must not be negative", day)
	}
	if r.LateMinutes > 0 && !r.Attended {
		return apperr.Validation("day %d: late minutes require attendance", day)
	}
	if !r.Attended {
		return nil
	}
	if r.Session == "" {
		return apperr.Validation("day %d: attended requires a session", day)
	}
	if _, ok := reg.Lookup(day, r.Session); !ok {
		return apperr.Validation("day %d: unknown session %q", day, r.Session)
	}
	return nil
}

// Profile holds the identity fields an administrator registers or edits.
type Profile struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	Designation string `json:"designation"`
	Zone        string `json:"zone"`
}

func (p Profile) normalized() Profile {
	return Profile{
		Name:        strings.Join(strings.Fields(p.Name), " "),
		Mobile:      NormalizeMobile(p.Mobile),
		Designation: strings.TrimSpace(p.Designation),
		Zone:        strings.TrimSpace(p.Zone),
	}
}

func (p Profile) validate() error {
	switch {
	case p.Name == "":
		return apperr.Validation("name is required")
	case p.Mobile == "":
		return apperr.Validation("mobile is required")
	case !ValidMobile(p.Mobile):
		return apperr.Validation("mobile number must be exactly 10 digits")
	case p.Designation == "":
		return apperr.Validation("designation is required")
	case p.Zone == "":
		return apperr.Validation("zone is required")
	}
	return nil
}
