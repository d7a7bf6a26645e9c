package auth

import (
	"context"
	"log/slog"
	"strings"

	"confattend/internal/apperr"
	"confattend/internal/schedule"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service implements sign-in, token refresh and sign-out for admins.
type Service struct {
	store   Store
	signer  Signer
	revoked Revocations
	clock   schedule.Clock
}

func NewService(st Store, signer Signer, revoked Revocations, clock schedule.Clock) *Service {
	return &Service{store: st, signer: signer, revoked: revoked, clock: clock}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureAdmin creates the account if no admin with that email exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLength {
		return apperr.Validation("admin email and a password of at least %d characters are required", minPasswordLength)
	}
	_, err := s.store.AdminByEmail(ctx, email)
	switch {
	case err == nil:
		return nil
	case !apperr.Is(err, apperr.KindNotFound):
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a := Admin{ID: uuid.NewString(), Email: email, PasswordHash: string(hash), CreatedAt: s.clock.Now().UTC()}
	if err := s.store.CreateAdmin(ctx, a); err != nil {
		return err
	}
	slog.Info("admin account created", "email", email)
	return nil
}

// SignIn checks credentials and issues a token pair. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	a, err := s.store.AdminByEmail(ctx, normalizeEmail(email))
	if apperr.Is(err, apperr.KindNotFound) {
		return TokenPair{}, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid email or password")
	}
	return s.issue(ctx, a)
}

func (s *Service) issue(ctx context.Context, a Admin) (TokenPair, error) {
	now := s.clock.Now().UTC()
	pair, err := s.signer.Issue(a.ID, a.Email, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.SaveRefreshToken(ctx, pair.RefreshID, a.ID, pair.RefreshExp.UTC()); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Refresh rotates a refresh token: the presented one is consumed and a
// new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.signer.Parse(refreshToken, TokenRefresh, s.clock.Now())
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}
	ok, err := s.store.ConsumeRefreshToken(ctx, claims.ID, claims.Subject, s.clock.Now().UTC())
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, apperr.Unauthorized("refresh token revoked or expired")
	}
	a, err := s.store.AdminByID(ctx, claims.Subject)
	if apperr.Is(err, apperr.KindNotFound) {
		return TokenPair{}, apperr.Unauthorized("admin no longer exists")
	}
	if err != nil {
		return TokenPair{}, err
	}
	return s.issue(ctx, a)
}

// Authenticate resolves a bearer access token to its claims.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Claims, error) {
	claims, err := s.signer.Parse(accessToken, TokenAccess, s.clock.Now())
	if err != nil {
		return Claims{}, apperr.Unauthorized("invalid token")
	}
	revoked, err := s.revoked.Revoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, apperr.Transient(err)
	}
	if revoked {
		return Claims{}, apperr.Unauthorized("token revoked")
	}
	return claims, nil
}

// CurrentUser returns the admin an access token belongs to.
func (s *Service) CurrentUser(ctx context.Context, claims Claims) (Admin, error) {
	a, err := s.store.AdminByID(ctx, claims.Subject)
	if apperr.Is(err, apperr.KindNotFound) {
		return Admin{}, apperr.Unauthorized("admin no longer exists")
	}
	return a, err
}

// SignOut revokes the access token and, when given, the refresh token.
// An invalid refresh token does not fail the sign-out.
func (s *Service) SignOut(ctx context.Context, claims Claims, refreshToken string) error {
	now := s.clock.Now()
	ttl := s.signer.AccessTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(now)
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperr.Transient(err)
	}
	if refreshToken == "" {
		return nil
	}
	rc, err := s.signer.Parse(refreshToken, TokenRefresh, s.clock.Now())
	if err != nil || rc.Subject != claims.Subject {
		slog.Debug("sign-out ignored refresh token", "admin_id", claims.Subject, "error", err)
		return nil
	}
	_, err = s.store.ConsumeRefreshToken(ctx, rc.ID, rc.Subject, now.UTC())
	return err
}
