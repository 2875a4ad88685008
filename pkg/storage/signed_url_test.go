package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("exp-1", "leaves/2025/register.csv")
	require.NoError(t, err)
	require.False(t, expiresAt.IsZero())

	id, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", id)
	assert.Equal(t, "leaves/2025/register.csv", path)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }

	token, _, err := signer.Generate("exp-1", "diary.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("exp-1", "diary.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "exp-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
