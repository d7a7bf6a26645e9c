// Package feedback stores comments left through the public form and by
// registered attendees. The two flows keep their own status vocabularies.
package feedback

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"confattend/internal/apperr"
)

type Flow string

const (
	FlowGeneral  Flow = "general"
	FlowAttendee Flow = "attendee"
)

type Status string

const (
	// general flow
	StatusNew      Status = "new"
	StatusReplied  Status = "replied"
	StatusArchived Status = "archived"

	// attendee flow
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
)

// Open reports whether the item still needs an administrator.
func (s Status) Open() bool {
	return s == StatusNew || s == StatusPending
}

type Sentiment string

const (
	SentimentNone     Sentiment = ""
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

// Categories accepted by the general form.
var Categories = []string{
	"general", "event_quality", "speakers", "venue", "food", "organization", "technical", "suggestions",
}

// Types accepted from attendees.
var Types = []string{"general", "suggestion", "complaint", "appreciation"}

const (
	minAttendeeMessage = 10
	maxMessage         = 1000
)

func tooLong(s string) bool { return utf8.RuneCountInString(s) > maxMessage }

// transitions lists the statuses SetStatus may move to, per flow and
// current status. Replies go through Reply, not SetStatus.
var transitions = map[Flow]map[Status][]Status{
	FlowGeneral: {
		StatusNew:     {StatusArchived},
		StatusReplied: {StatusArchived},
	},
	FlowAttendee: {
		StatusPending:  {StatusReviewed},
		StatusReviewed: {StatusPending},
	},
}

func canTransition(flow Flow, from, to Status) bool {
	return slices.Contains(transitions[flow][from], to)
}

func initialStatus(flow Flow) Status {
	if flow == FlowAttendee {
		return StatusPending
	}
	return StatusNew
}

// Feedback is one submission. AttendeeID and Mobile are set only for the
// attendee flow; Name and Email are optional on the general form.
type Feedback struct {
	ID         string     `json:"id"`
	Flow       Flow       `json:"flow"`
	AttendeeID string     `json:"attendee_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Email      string     `json:"email,omitempty"`
	Mobile     string     `json:"mobile,omitempty"`
	Category   string     `json:"category"`
	Message    string     `json:"message"`
	Rating     int        `json:"rating"`
	Sentiment  Sentiment  `json:"sentiment,omitempty"`
	Status     Status     `json:"status"`
	Reply      string     `json:"reply,omitempty"`
	RepliedAt  *time.Time `json:"replied_at,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// GeneralInput is the public feedback form.
type GeneralInput struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	Sentiment Sentiment `json:"sentiment"`
}

func (in GeneralInput) normalized() GeneralInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Category = strings.TrimSpace(in.Category)
	in.Message = strings.TrimSpace(in.Message)
	if in.Category == "" {
		in.Category = "general"
	}
	return in
}

func (in GeneralInput) validate() error {
	switch {
	case in.Message == "":
		return apperr.Validation("message is required")
	case tooLong(in.Message):
		return apperr.Validation("message must be at most %d characters", maxMessage)
	case !slices.Contains(Categories, in.Category):
		return apperr.Validation("unknown category %q", in.Category)
	case in.Rating < 0 || in.Rating > 5:
		return apperr.Validation("rating must be between 0 and 5")
	case in.Sentiment != SentimentNone && in.Sentiment != SentimentPositive && in.Sentiment != SentimentNegative:
		return apperr.Validation("unknown sentiment %q", in.Sentiment)
	case in.Email != "" && !strings.Contains(in.Email, "@"):
		return apperr.Validation("email is not valid")
	}
	return nil
}

// AttendeeInput is feedback from a registered attendee identified by mobile.
// A zero rating means the default of 5.
type AttendeeInput struct {
	Mobile  string `json:"mobile"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

func (in AttendeeInput) normalized() AttendeeInput {
	in.Type = strings.TrimSpace(in.Type)
	in.Message = strings.TrimSpace(in.Message)
	if in.Type == "" {
		in.Type = "general"
	}
	if in.Rating == 0 {
		in.Rating = 5
	}
	return in
}

func (in AttendeeInput) validate() error {
	switch {
	case utf8.RuneCountInString(in.Message) < minAttendeeMessage:
		return apperr.Validation("message must be at least %d characters", minAttendeeMessage)
	case tooLong(in.Message):
		return apperr.Validation("message must be at most %d characters", maxMessage)
	case !slices.Contains(Types, in.Type):
		return apperr.Validation("unknown feedback type %q", in.Type)
	case in.Rating < 1 || in.Rating > 5:
		return apperr.Validation("rating must be between 1 and 5")
	}
	return nil
}
