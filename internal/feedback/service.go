package feedback

import (
	"context"
	"log/slog"
	"strings"

	"confattend/internal/apperr"
	"confattend/internal/attendance"
	"confattend/internal/metrics"
	"confattend/internal/schedule"

	"github.com/google/uuid"
)

type RatingBand string

const (
	RatingAny  RatingBand = ""
	RatingHigh RatingBand = "high"
	RatingLow  RatingBand = "low"
)

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

type Filter struct {
	Flow      Flow
	Status    Status
	Sentiment Sentiment
	Category  string
	Search    string
	Rating    RatingBand
	Page      int
	PerPage   int
}

func (f Filter) normalize() (Filter, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	switch f.Flow {
	case "", FlowGeneral, FlowAttendee:
	default:
		return Filter{}, apperr.Validation("unknown flow %q", f.Flow)
	}
	switch f.Status {
	case "", StatusNew, StatusReplied, StatusArchived, StatusPending, StatusReviewed:
	default:
		return Filter{}, apperr.Validation("unknown status %q", f.Status)
	}
	switch f.Rating {
	case RatingAny, RatingHigh, RatingLow:
	default:
		return Filter{}, apperr.Validation("unknown rating band %q", f.Rating)
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
	Items   []Feedback `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

// AttendeeFinder resolves the attendee behind a mobile number.
type AttendeeFinder interface {
	FindByMobile(ctx context.Context, mobile string) (attendance.Attendee, error)
}

type Service struct {
	store     Store
	attendees AttendeeFinder
	clock     schedule.Clock
}

func NewService(st Store, attendees AttendeeFinder, clock schedule.Clock) *Service {
	return &Service{store: st, attendees: attendees, clock: clock}
}

func (s *Service) SubmitGeneral(ctx context.Context, in GeneralInput) (Feedback, error) {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return Feedback{}, err
	}
	now := s.clock.Now().UTC()
	f := Feedback{
		ID:        uuid.NewString(),
		Flow:      FlowGeneral,
		Name:      in.Name,
		Email:     in.Email,
		Category:  in.Category,
		Message:   in.Message,
		Rating:    in.Rating,
		Sentiment: in.Sentiment,
		Status:    initialStatus(FlowGeneral),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.create(ctx, f)
}

// SubmitAttendee records feedback from a registered attendee. The input
// is validated before the attendee is looked up.
func (s *Service) SubmitAttendee(ctx context.Context, in AttendeeInput) (Feedback, error) {
	in = in.normalized()
	mobile := attendance.NormalizeMobile(in.Mobile)
	if !attendance.ValidMobile(mobile) {
		return Feedback{}, apperr.Validation("mobile number must be exactly 10 digits")
	}
	if err := in.validate(); err != nil {
		return Feedback{}, err
	}
	a, err := s.attendees.FindByMobile(ctx, mobile)
	if err != nil {
		return Feedback{}, err
	}
	now := s.clock.Now().UTC()
	f := Feedback{
		ID:         uuid.NewString(),
		Flow:       FlowAttendee,
		AttendeeID: a.ID,
		Name:       a.Name,
		Mobile:     a.Mobile,
		Category:   in.Type,
		Message:    in.Message,
		Rating:     in.Rating,
		Status:     initialStatus(FlowAttendee),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.create(ctx, f)
}

func (s *Service) create(ctx context.Context, f Feedback) (Feedback, error) {
	if err := s.store.Create(ctx, f); err != nil {
		return Feedback{}, err
	}
	metrics.FeedbackSubmissions.WithLabelValues(string(f.Flow)).Inc()
	slog.Info("feedback received", "id", f.ID, "flow", f.Flow, "category", f.Category, "rating", f.Rating)
	return f, nil
}

func (s *Service) Get(ctx context.Context, id string) (Feedback, error) {
	return s.store.Get(ctx, id)
}

// Reply answers a general-flow item and marks it replied. Replying again
// replaces the previous answer.
func (s *Service) Reply(ctx context.Context, id, message string) (Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Feedback{}, apperr.Validation("reply message is required")
	}
	if tooLong(message) {
		return Feedback{}, apperr.Validation("reply must be at most %d characters", maxMessage)
	}
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return Feedback{}, err
	}
	if f.Flow != FlowGeneral {
		return Feedback{}, apperr.Precondition("only general feedback can be replied to")
	}
	if f.Status == StatusArchived {
		return Feedback{}, apperr.Precondition("feedback is archived")
	}
	from := f.Status
	now := s.clock.Now().UTC()
	f.Status, f.Reply, f.RepliedAt, f.UpdatedAt = StatusReplied, message, &now, now
	if err := s.store.Transition(ctx, id, from, f); err != nil {
		return Feedback{}, err
	}
	return f, nil
}

// SetStatus moves an item along its flow's lifecycle.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (Feedback, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return Feedback{}, err
	}
	if f.Status == to {
		return f, nil
	}
	if !canTransition(f.Flow, f.Status, to) {
		return Feedback{}, apperr.Precondition("%s feedback cannot move from %s to %s", f.Flow, f.Status, to)
	}
	from := f.Status
	now := s.clock.Now().UTC()
	f.Status, f.UpdatedAt = to, now
	switch to {
	case StatusReviewed:
		f.ReviewedAt = &now
	case StatusPending:
		f.ReviewedAt = nil
	}
	if err := s.store.Transition(ctx, id, from, f); err != nil {
		return Feedback{}, err
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
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
		items = []Feedback{}
	}
	return Page{Items: items, Total: total, Page: f.Page, PerPage: f.PerPage}, nil
}
