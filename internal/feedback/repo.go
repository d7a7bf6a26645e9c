package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/metrics"
	"confattend/internal/store"
)

type Store interface {
	Create(ctx context.Context, f Feedback) error
	Get(ctx context.Context, id string) (Feedback, error)
	List(ctx context.Context, f Filter) ([]Feedback, int, error)
	All(ctx context.Context) ([]Feedback, error)
	// Transition moves id from one status to another only if it is still
	// in from. A concurrent change surfaces as a precondition failure.
	Transition(ctx context.Context, id string, from Status, to Feedback) error
	Delete(ctx context.Context, id string) error
}

type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const selectFeedback = `
	SELECT id, flow, attendee_id, name, email, mobile, category, message, rating, sentiment,
		status, reply, replied_at, reviewed_at, created_at, updated_at
	FROM feedback`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (Feedback, error) {
	var (
		f                 Feedback
		flow, status, sen string
		replied, reviewed sql.NullTime
	)
	err := row.Scan(&f.ID, &flow, &f.AttendeeID, &f.Name, &f.Email, &f.Mobile, &f.Category, &f.Message, &f.Rating, &sen,
		&status, &f.Reply, &replied, &reviewed, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return Feedback{}, err
	}
	f.Flow, f.Status, f.Sentiment = Flow(flow), Status(status), Sentiment(sen)
	if replied.Valid {
		t := replied.Time
		f.RepliedAt = &t
	}
	if reviewed.Valid {
		t := reviewed.Time
		f.ReviewedAt = &t
	}
	return f, nil
}

func (r *Repository) Create(ctx context.Context, f Feedback) error {
	defer metrics.ObserveStore("feedback_create", time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (id, flow, attendee_id, name, email, mobile, category, message, rating, sentiment,
			status, reply, replied_at, reviewed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, f.ID, string(f.Flow), f.AttendeeID, f.Name, f.Email, f.Mobile, f.Category, f.Message, f.Rating, string(f.Sentiment),
		string(f.Status), f.Reply, nullTime(f.RepliedAt), nullTime(f.ReviewedAt), f.CreatedAt, f.UpdatedAt)
	return apperr.Transient(err)
}

func (r *Repository) Get(ctx context.Context, id string) (Feedback, error) {
	defer metrics.ObserveStore("feedback_get", time.Now())
	f, err := scanFeedback(r.db.QueryRowContext(ctx, selectFeedback+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Feedback{}, apperr.NotFound("feedback not found")
	}
	return f, apperr.Transient(err)
}

func (r *Repository) Transition(ctx context.Context, id string, from Status, to Feedback) error {
	defer metrics.ObserveStore("feedback_transition", time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE feedback SET status = $3, reply = $4, replied_at = $5, reviewed_at = $6, updated_at = $7
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to.Status), to.Reply, nullTime(to.RepliedAt), nullTime(to.ReviewedAt), to.UpdatedAt)
	if err != nil {
		return apperr.Transient(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Transient(err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return apperr.Precondition("feedback status changed concurrently")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	defer metrics.ObserveStore("feedback_delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return apperr.Transient(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("feedback not found")
	}
	return nil
}

// List returns one page, newest first, and the number of matches.
func (r *Repository) List(ctx context.Context, f Filter) ([]Feedback, int, error) {
	defer metrics.ObserveStore("feedback_list", time.Now())
	where, args := f.clauses()
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Transient(err)
	}
	query := selectFeedback + where + fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	list, err := r.query(ctx, query, args...)
	return list, total, err
}

func (r *Repository) All(ctx context.Context) ([]Feedback, error) {
	defer metrics.ObserveStore("feedback_all", time.Now())
	return r.query(ctx, selectFeedback+` ORDER BY created_at DESC, id`)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Feedback, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err)
	}
	defer rows.Close()
	var res []Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, apperr.Transient(err)
		}
		res = append(res, f)
	}
	return res, apperr.Transient(rows.Err())
}

func (f Filter) clauses() (string, []any) {
	var (
		parts []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Flow != "" {
		parts = append(parts, "flow = "+arg(string(f.Flow)))
	}
	if f.Status != "" {
		parts = append(parts, "status = "+arg(string(f.Status)))
	}
	if f.Sentiment != "" {
		parts = append(parts, "sentiment = "+arg(string(f.Sentiment)))
	}
	if f.Category != "" {
		parts = append(parts, "category = "+arg(f.Category))
	}
	if f.Search != "" {
		p := arg("%" + strings.ToLower(f.Search) + "%")
		parts = append(parts, "(LOWER(message) LIKE "+p+" OR LOWER(name) LIKE "+p+" OR LOWER(email) LIKE "+p+" OR mobile LIKE "+p+")")
	}
	switch f.Rating {
	case RatingHigh:
		parts = append(parts, "rating >= 4")
	case RatingLow:
		parts = append(parts, "rating BETWEEN 1 AND 2")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
