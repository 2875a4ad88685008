package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	SingleSession      bool
}

// AuthService signs teachers and administrators in and keeps their refresh tokens rotating.
type AuthService struct {
	repo      authUserRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	tokens    accessTokens
	now       func() time.Time
}

// session is the token pair handed out by Login and RefreshToken.
type session struct {
	access   string
	refresh  *models.RefreshToken
	issuedAt time.Time
}

// NewAuthService constructs an AuthService instance. audit may be nil.
func NewAuthService(repo authUserRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, audit: audit, validator: validate, logger: logger, config: config, tokens: newAccessTokens(config), now: time.Now}
}

// Login checks the bcrypt hash of an active account and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrInvalidCredentials, "invalid email or password", "failed to fetch user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	sess, err := s.open(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID, sess.issuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.trail(ctx, user.ID, models.AuditActionLogin, map[string]string{"status": "success"}, req.IP, req.UserAgent)

	out := s.issue(sess)
	profile := user.Profile()
	out.User = &profile
	return out, nil
}

// RefreshToken rotates a refresh token. Presenting an already revoked token is treated as
// theft and ends every session of its owner.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid refresh payload")
	}

	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrUnauthorized, "refresh token not found", "failed to fetch refresh token")
	}
	if stored.Revoked {
		if err := s.repo.RevokeUserRefreshTokens(ctx, stored.UserID); err != nil {
			s.logger.Warn("failed to revoke sessions after token reuse", zap.String("user_id", stored.UserID), zap.Error(err))
		}
		s.logger.Warn("revoked refresh token presented", zap.String("user_id", stored.UserID), zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}
	if !stored.Usable(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrUnauthorized, "associated user no longer exists", "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now().UTC()); err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to revoke used refresh token")
	}
	sess, err := s.open(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return s.issue(sess), nil
}

// Logout revokes a refresh token owned by the caller.
func (s *AuthService) Logout(ctx context.Context, userID string, req models.LogoutRequest, ip, userAgent string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.ErrValidation.WithCause(err, "invalid logout payload")
	}

	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return lookupError(err, appErrors.ErrUnauthorized, "refresh token not found", "failed to load refresh token")
	}
	if stored.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now().UTC()); err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to revoke refresh token")
	}

	s.trail(ctx, userID, models.AuditActionLogout, map[string]string{"status": "logout"}, ip, userAgent)
	return nil
}

// ChangePassword replaces the caller's hash and signs out every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.ErrValidation.WithCause(err, "invalid change password payload")
	}
	if req.OldPassword == req.NewPassword {
		return appErrors.Clone(appErrors.ErrValidation, "new password must differ from the current one")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return lookupError(err, appErrors.ErrNotFound, "user not found", "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), s.now().UTC()); err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.String("user_id", userID), zap.Error(err))
	}

	s.trail(ctx, userID, models.AuditActionPasswordChange, map[string]string{"status": "changed"}, "", "")
	return nil
}

// ValidateToken verifies an access token and returns its claims.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	return s.tokens.verify(raw)
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrNotFound, "user not found", "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	profile := user.Profile()
	return &profile, nil
}

// open signs an access token and persists a fresh refresh token for user.
func (s *AuthService) open(ctx context.Context, user *models.User, ip, userAgent string) (*session, error) {
	issuedAt := s.now().UTC()
	access, err := s.tokens.sign(user, issuedAt)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to create access token")
	}
	value, err := opaqueToken()
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to create refresh token")
	}
	refresh := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     value,
		ExpiresAt: issuedAt.Add(s.config.RefreshTokenExpiry),
		CreatedAt: issuedAt,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to persist refresh token")
	}
	return &session{access: access, refresh: refresh, issuedAt: issuedAt}, nil
}

func (s *AuthService) issue(sess *session) *models.Session {
	return &models.Session{
		AccessToken:  sess.access,
		RefreshToken: sess.refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     sess.issuedAt,
	}
}

func (s *AuthService) trail(ctx context.Context, userID, action string, values map[string]string, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	s.audit.Record(ctx, models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}

// lookupError maps a missing row to missing and anything else to an internal error.
func lookupError(err error, missing *appErrors.Error, missingMsg, failMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(missing, missingMsg)
	}
	return appErrors.ErrInternal.WithCause(err, failMsg)
}
