// Package announce delivers the welcome announcement spoken at the venue
// after an attendee checks in on the first day.
package announce

import (
	"context"
	"fmt"

	"confattend/internal/attendance"
	"confattend/internal/schedule"
)

// Announcement is the webhook payload.
type Announcement struct {
	AttendeeID string       `json:"attendee_id"`
	Name       string       `json:"name"`
	Day        int          `json:"day"`
	Session    schedule.Key `json:"session"`
	Message    string       `json:"message"`
}

type Sender interface {
	Announce(ctx context.Context, a Announcement) error
}

func WelcomeMessage(name string) string {
	return fmt.Sprintf("Welcome %s! Your attendance has been marked successfully.", attendance.DisplayName(name))
}

// FromCelebration builds the announcement for a celebration job.
func FromCelebration(c attendance.Celebration) Announcement {
	return Announcement{
		AttendeeID: c.AttendeeID,
		Name:       attendance.DisplayName(c.Name),
		Day:        c.Day,
		Session:    c.Session,
		Message:    WelcomeMessage(c.Name),
	}
}
