package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	URL         string        `envconfig:"DATABASE_URL"`
	DialTimeout time.Duration `envconfig:"DATABASE_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout time.Duration `envconfig:"DATABASE_READ_TIMEOUT" default:"10s"`
}

// Enabled reports whether a database URL was configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// New opens a bun handle over pgdriver and verifies the connection.
func (c *Config) New(ctx context.Context) (*bun.DB, error) {
	if c.URL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(c.URL),
		pgdriver.WithDialTimeout(c.DialTimeout),
		pgdriver.WithReadTimeout(c.ReadTimeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, c.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
