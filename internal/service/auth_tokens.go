package service

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

const tokenLeeway = 30 * time.Second

// accessTokens signs and verifies HS256 access tokens.
type accessTokens struct {
	key      []byte
	ttl      time.Duration
	issuer   string
	audience []string
	parser   *jwt.Parser
}

func newAccessTokens(cfg AuthConfig) accessTokens {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audience[0]))
	}
	return accessTokens{
		key:      []byte(cfg.AccessTokenSecret),
		ttl:      cfg.AccessTokenExpiry,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		parser:   jwt.NewParser(opts...),
	}
}

func (t accessTokens) sign(user *models.User, at time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			Audience:  t.audience,
			IssuedAt:  jwt.NewNumericDate(at),
			NotBefore: jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

func (t accessTokens) verify(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := t.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, appErrors.ErrUnauthorized.WithCause(err, "invalid token")
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// opaqueToken returns 256 random bits, URL-safe encoded, for refresh tokens.
func opaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
