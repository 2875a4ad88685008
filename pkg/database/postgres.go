package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/lecture-diary-api/pkg/config"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// URL renders cfg as a postgres:// connection URL. Credentials are escaped.
func URL(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	query := url.Values{}
	if cfg.SSLMode != "" {
		query.Set("sslmode", cfg.SSLMode)
	}
	query.Set("application_name", "lecture-diary-api")
	u.RawQuery = query.Encode()
	return u.String()
}

// Open connects to PostgreSQL and pings it, retrying while the server is still starting.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	tune(db, cfg)

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return db, nil
		}
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			db.Close() //nolint:errcheck
			return nil, ctx.Err()
		case <-time.After(wait):
			wait *= 2
		}
	}
	db.Close() //nolint:errcheck
	return nil, fmt.Errorf("ping postgres after %d attempts: %w", connectAttempts, err)
}

func tune(db *sqlx.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	idle := cfg.MaxIdleConns
	if idle <= 0 || (cfg.MaxOpenConns > 0 && idle > cfg.MaxOpenConns) {
		idle = cfg.MaxOpenConns
	}
	if idle > 0 {
		db.SetMaxIdleConns(idle)
	}
	db.SetConnMaxLifetime(45 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)
}
