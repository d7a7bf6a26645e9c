package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/metrics"
	"confattend/internal/store"
)

// Admin is an account allowed to use the administrative API.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store interface {
	CreateAdmin(ctx context.Context, a Admin) error
	AdminByEmail(ctx context.Context, email string) (Admin, error)
	AdminByID(ctx context.Context, id string) (Admin, error)
	SaveRefreshToken(ctx context.Context, tokenID, adminID string, exp time.Time) error
	// ConsumeRefreshToken revokes a live refresh token and reports whether
	// it was live. Only one caller can consume a given token.
	ConsumeRefreshToken(ctx context.Context, tokenID, adminID string, now time.Time) (bool, error)
}

type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateAdmin(ctx context.Context, a Admin) error {
	defer metrics.ObserveStore("admin_create", time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)
	`, a.ID, a.Email, a.PasswordHash, a.CreatedAt)
	return apperr.Transient(err)
}

func (r *Repository) AdminByEmail(ctx context.Context, email string) (Admin, error) {
	return r.admin(ctx, `WHERE email = $1`, email)
}

func (r *Repository) AdminByID(ctx context.Context, id string) (Admin, error) {
	return r.admin(ctx, `WHERE id = $1`, id)
}

func (r *Repository) admin(ctx context.Context, where string, arg string) (Admin, error) {
	defer metrics.ObserveStore("admin_get", time.Now())
	var a Admin
	err := r.db.QueryRowContext(ctx, `SELECT id, email, password_hash, created_at FROM admin_users `+where, arg).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, apperr.NotFound("admin not found")
	}
	return a, apperr.Transient(err)
}

// SaveRefreshToken persists a refresh token id for rotation and revocation.
func (r *Repository) SaveRefreshToken(ctx context.Context, tokenID, adminID string, exp time.Time) error {
	defer metrics.ObserveStore("refresh_save", time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_id, admin_id, expires_at, revoked) VALUES ($1, $2, $3, FALSE)
	`, tokenID, adminID, exp)
	return apperr.Transient(err)
}

func (r *Repository) ConsumeRefreshToken(ctx context.Context, tokenID, adminID string, now time.Time) (bool, error) {
	defer metrics.ObserveStore("refresh_consume", time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token_id = $1 AND admin_id = $2 AND revoked = FALSE AND expires_at > $3
	`, tokenID, adminID, now)
	if err != nil {
		return false, apperr.Transient(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Transient(err)
	}
	return n == 1, nil
}
