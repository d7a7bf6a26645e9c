package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/metrics"
	"confattend/internal/schedule"
	"confattend/internal/store"
)

// Store is the persistence the attendance service needs.
type Store interface {
	Create(ctx context.Context, a Attendee) error
	Get(ctx context.Context, id string) (Attendee, error)
	FindByMobile(ctx context.Context, mobile string) (Attendee, error)
	Update(ctx context.Context, a Attendee, days map[int]DayRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]Attendee, int, error)
	All(ctx context.Context) ([]Attendee, error)
	RecordDay(ctx context.Context, attendeeID string, day int, rec DayRecord, at time.Time) error
}

// Repository persists attendees and their day records in SQL.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const selectAttendees = `
	SELECT a.id, a.name, a.mobile, a.designation, a.zone, a.created_at, a.updated_at,
		COALESCE(d1.attended, FALSE), COALESCE(d1.session, ''), COALESCE(d1.late_minutes, 0),
		COALESCE(d1.remarks, ''), COALESCE(d1.manual_entry, FALSE), COALESCE(d1.manual_entry_time, ''), d1.checkin_at,
		COALESCE(d2.attended, FALSE), COALESCE(d2.session, ''), COALESCE(d2.late_minutes, 0),
		COALESCE(d2.remarks, ''), COALESCE(d2.manual_entry, FALSE), COALESCE(d2.manual_entry_time, ''), d2.checkin_at
	FROM attendees a
	LEFT JOIN attendance_days d1 ON d1.attendee_id = a.id AND d1.day = 1
	LEFT JOIN attendance_days d2 ON d2.attendee_id = a.id AND d2.day = 2`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendee(row rowScanner) (Attendee, error) {
	var (
		a      Attendee
		s1, s2 string
		c1, c2 sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &a.Mobile, &a.Designation, &a.Zone, &a.CreatedAt, &a.UpdatedAt,
		&a.Day1.Attended, &s1, &a.Day1.LateMinutes, &a.Day1.Remarks, &a.Day1.ManualEntry, &a.Day1.ManualEntryTime, &c1,
		&a.Day2.Attended, &s2, &a.Day2.LateMinutes, &a.Day2.Remarks, &a.Day2.ManualEntry, &a.Day2.ManualEntryTime, &c2)
	if err != nil {
		return Attendee{}, err
	}
	a.Day1.Session, a.Day2.Session = schedule.Key(s1), schedule.Key(s2)
	if c1.Valid {
		t := c1.Time
		a.Day1.CheckinAt = &t
	}
	if c2.Valid {
		t := c2.Time
		a.Day2.CheckinAt = &t
	}
	return a, nil
}

func (r *Repository) Create(ctx context.Context, a Attendee) error {
	defer metrics.ObserveStore("attendee_create", time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendees (id, name, mobile, designation, zone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Name, a.Mobile, a.Designation, a.Zone, a.CreatedAt, a.UpdatedAt)
	return apperr.Transient(err)
}

func (r *Repository) Get(ctx context.Context, id string) (Attendee, error) {
	defer metrics.ObserveStore("attendee_get", time.Now())
	a, err := scanAttendee(r.db.QueryRowContext(ctx, selectAttendees+` WHERE a.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attendee{}, apperr.NotFound("attendee not found")
	}
	return a, apperr.Transient(err)
}

// FindByMobile returns the earliest registration for a mobile number.
func (r *Repository) FindByMobile(ctx context.Context, mobile string) (Attendee, error) {
	defer metrics.ObserveStore("attendee_find_mobile", time.Now())
	a, err := scanAttendee(r.db.QueryRowContext(ctx,
		selectAttendees+` WHERE a.mobile = $1 ORDER BY a.created_at, a.id LIMIT 1`, mobile))
	if errors.Is(err, sql.ErrNoRows) {
		return Attendee{}, apperr.NotFound("no attendee registered with mobile %s", mobile)
	}
	return a, apperr.Transient(err)
}

// Update overwrites identity fields and the given day records in one
// transaction. Days absent from days are left as stored.
func (r *Repository) Update(ctx context.Context, a Attendee, days map[int]DayRecord) error {
	defer metrics.ObserveStore("attendee_update", time.Now())
	tx, err := r.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Transient(err)
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, r.db.Rebind(`
		UPDATE attendees SET name = $2, mobile = $3, designation = $4, zone = $5, updated_at = $6
		WHERE id = $1
	`), a.ID, a.Name, a.Mobile, a.Designation, a.Zone, a.UpdatedAt)
	if err != nil {
		return apperr.Transient(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("attendee not found")
	}
	for _, d := range Days {
		rec, ok := days[d]
		if !ok {
			continue
		}
		if err := r.putDay(ctx, tx, a.ID, d, rec, a.UpdatedAt); err != nil {
			return err
		}
	}
	return apperr.Transient(tx.Commit())
}

func (r *Repository) putDay(ctx context.Context, tx *sql.Tx, id string, day int, rec DayRecord, at time.Time) error {
	_, err := tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO attendance_days (attendee_id, day, attended, session, late_minutes, remarks, manual_entry, manual_entry_time, checkin_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (attendee_id, day) DO UPDATE SET
			attended = EXCLUDED.attended,
			session = EXCLUDED.session,
			late_minutes = EXCLUDED.late_minutes,
			remarks = EXCLUDED.remarks,
			manual_entry = EXCLUDED.manual_entry,
			manual_entry_time = EXCLUDED.manual_entry_time,
			checkin_at = EXCLUDED.checkin_at,
			updated_at = EXCLUDED.updated_at
	`), id, day, rec.Attended, string(rec.Session), rec.LateMinutes, rec.Remarks, rec.ManualEntry, rec.ManualEntryTime, nullTime(rec.CheckinAt), at)
	return apperr.Transient(err)
}

// RecordDay writes the day record only while the stored day is not yet
// attended. A lost race surfaces as a precondition failure.
func (r *Repository) RecordDay(ctx context.Context, attendeeID string, day int, rec DayRecord, at time.Time) error {
	defer metrics.ObserveStore("attendance_record", time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_days (attendee_id, day, attended, session, late_minutes, remarks, manual_entry, manual_entry_time, checkin_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (attendee_id, day) DO UPDATE SET
			attended = EXCLUDED.attended,
			session = EXCLUDED.session,
			late_minutes = EXCLUDED.late_minutes,
			remarks = EXCLUDED.remarks,
			manual_entry = EXCLUDED.manual_entry,
			manual_entry_time = EXCLUDED.manual_entry_time,
			checkin_at = EXCLUDED.checkin_at,
			updated_at = EXCLUDED.updated_at
		WHERE attendance_days.attended = FALSE
	`, attendeeID, day, rec.Attended, string(rec.Session), rec.LateMinutes, rec.Remarks, rec.ManualEntry, rec.ManualEntryTime, nullTime(rec.CheckinAt), at)
	if err != nil {
		return apperr.Transient(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Transient(err)
	}
	if n == 0 {
		return apperr.Precondition("day %d attendance is already recorded", day)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE attendees SET updated_at = $2 WHERE id = $1`, attendeeID, at)
	return apperr.Transient(err)
}

// Delete removes the attendee and its day records.
func (r *Repository) Delete(ctx context.Context, id string) error {
	defer metrics.ObserveStore("attendee_delete", time.Now())
	tx, err := r.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Transient(err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM attendance_days WHERE attendee_id = $1`), id); err != nil {
		return apperr.Transient(err)
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM attendees WHERE id = $1`), id)
	if err != nil {
		return apperr.Transient(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("attendee not found")
	}
	return apperr.Transient(tx.Commit())
}

// List returns one page of attendees matching f, newest registrations first,
// plus the total number of matches.
func (r *Repository) List(ctx context.Context, f Filter) ([]Attendee, int, error) {
	defer metrics.ObserveStore("attendee_list", time.Now())
	where, args := f.clauses()
	var total int
	countQuery := `SELECT COUNT(*) FROM attendees a
		LEFT JOIN attendance_days d1 ON d1.attendee_id = a.id AND d1.day = 1
		LEFT JOIN attendance_days d2 ON d2.attendee_id = a.id AND d2.day = 2` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Transient(err)
	}

	query := selectAttendees + where + fmt.Sprintf(" ORDER BY a.created_at DESC, a.id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	list, err := r.query(ctx, query, args...)
	return list, total, err
}

func (r *Repository) All(ctx context.Context) ([]Attendee, error) {
	defer metrics.ObserveStore("attendee_all", time.Now())
	return r.query(ctx, selectAttendees+` ORDER BY a.created_at DESC, a.id`)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Attendee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(err)
	}
	defer rows.Close()
	var res []Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, apperr.Transient(err)
		}
		res = append(res, a)
	}
	return res, apperr.Transient(rows.Err())
}

// clauses builds the WHERE fragment for a normalised filter.
func (f Filter) clauses() (string, []any) {
	var (
		parts []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		p := arg("%" + strings.ToLower(f.Search) + "%")
		parts = append(parts, "(LOWER(a.name) LIKE "+p+" OR a.mobile LIKE "+p+")")
	}
	if f.Zone != "" {
		parts = append(parts, "LOWER(a.zone) = LOWER("+arg(f.Zone)+")")
	}
	const (
		d1 = "COALESCE(d1.attended, FALSE) = TRUE"
		d2 = "COALESCE(d2.attended, FALSE) = TRUE"
	)
	switch f.Attendance {
	case AttendanceDay1:
		parts = append(parts, d1)
	case AttendanceDay2:
		parts = append(parts, d2)
	case AttendanceBoth:
		parts = append(parts, d1, d2)
	case AttendanceNone:
		parts = append(parts, "COALESCE(d1.attended, FALSE) = FALSE", "COALESCE(d2.attended, FALSE) = FALSE")
	case AttendanceManual:
		parts = append(parts, "(COALESCE(d1.manual_entry, FALSE) = TRUE OR COALESCE(d2.manual_entry, FALSE) = TRUE)")
	case AttendanceLate:
		parts = append(parts, "(COALESCE(d1.late_minutes, 0) > 0 OR COALESCE(d2.late_minutes, 0) > 0)")
	}
	if f.Day1Session != "" {
		parts = append(parts, "d1.session = "+arg(string(f.Day1Session)))
	}
	if f.Day2Session != "" {
		parts = append(parts, "d2.session = "+arg(string(f.Day2Session)))
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
