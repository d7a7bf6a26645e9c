package attendance

import (
	"context"
	"fmt"
	"strings"

	"confattend/internal/apperr"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Certificate is the data a participation certificate is rendered from.
type Certificate struct {
	AttendeeID  string   `json:"attendee_id"`
	Name        string   `json:"name"`
	Designation string   `json:"designation"`
	Zone        string   `json:"zone"`
	Lines       []string `json:"lines"`
	DaysCount   int      `json:"days_attended"`
}

var titleCase = cases.Title(language.English)

// DisplayName title-cases a registered name for printing.
func DisplayName(name string) string {
	return titleCase.String(strings.Join(strings.Fields(name), " "))
}

// Certificate looks an attendee up by mobile. Every registered attendee
// gets one; the lines say what was attended.
func (s *Service) Certificate(ctx context.Context, mobile string) (Certificate, error) {
	mobile = NormalizeMobile(mobile)
	if !ValidMobile(mobile) {
		return Certificate{}, apperr.Validation("mobile number must be exactly 10 digits")
	}
	a, err := s.store.FindByMobile(ctx, mobile)
	if err != nil {
		return Certificate{}, err
	}
	c := Certificate{
		AttendeeID:  a.ID,
		Name:        DisplayName(a.Name),
		Designation: a.Designation,
		Zone:        a.Zone,
	}
	for _, d := range Days {
		rec := a.Day(d)
		if rec.Attended {
			c.DaysCount++
		}
		c.Lines = append(c.Lines, s.dayLine(d, rec))
	}
	return c, nil
}

func (s *Service) dayLine(day int, rec DayRecord) string {
	if !rec.Attended {
		return fmt.Sprintf("Day %d: Not attended", day)
	}
	sess, ok := s.reg.Lookup(day, rec.Session)
	if !ok {
		return fmt.Sprintf("Day %d: Attendance marked but schedule incomplete", day)
	}
	return fmt.Sprintf("Day %d: %s", day, sess.Display)
}
