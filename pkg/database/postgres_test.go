package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/pkg/config"
)

func TestURLEscapesCredentials(t *testing.T) {
	raw := URL(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "diary",
		Password: "p@ss word/1",
		Name:     "lecture_diary",
		SSLMode:  "require",
	})

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:6543", parsed.Host)
	assert.Equal(t, "/lecture_diary", parsed.Path)
	password, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word/1", password)
	assert.Equal(t, "require", parsed.Query().Get("sslmode"))
}

func TestURLOmitsEmptySSLMode(t *testing.T) {
	parsed, err := url.Parse(URL(config.DatabaseConfig{Host: "::1", Port: 5432, Name: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "[::1]:5432", parsed.Host)
	assert.False(t, parsed.Query().Has("sslmode"))
}
