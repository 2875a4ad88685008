package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

const (
	userColumns    = `id, email, password_hash, full_name, role, department, active, last_login, created_at, updated_at`
	sessionColumns = `id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent`
)

// AccountRepository reads user accounts and manages their refresh token sessions.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail matches email case-insensitively.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := getRow(ctx, r.db, &user, "find user by email",
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := getRow(ctx, r.db, &user, "find user by id",
		`SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at)
	return wrapErr("update last login", err)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, at)
	return wrapErr("update password", err)
}

// CreateRefreshToken stores a new session, assigning an id and timestamp when missing.
func (r *AccountRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO refresh_tokens (`+sessionColumns+`)
VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`, token)
	return wrapErr("create refresh token", err)
}

// FindRefreshToken looks a session up by its opaque token value, revoked or not.
func (r *AccountRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var session models.RefreshToken
	err := getRow(ctx, r.db, &session, "find refresh token",
		`SELECT `+sessionColumns+` FROM refresh_tokens WHERE token = $1 LIMIT 1`, token)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *AccountRepository) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`, id, at)
	return wrapErr("revoke refresh token", err)
}

// RevokeUserRefreshTokens ends every live session of a user.
func (r *AccountRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`,
		userID, time.Now().UTC())
	return wrapErr("revoke user refresh tokens", err)
}
