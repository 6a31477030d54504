package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is created idempotently at startup; there is no migration history.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            CHAR(24) PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user'
);

CREATE TABLE IF NOT EXISTS items (
	id          CHAR(24) PRIMARY KEY,
	name        TEXT NOT NULL,
	item_code   TEXT NOT NULL,
	category    TEXT,
	quantity    BIGINT NOT NULL CHECK (quantity >= 0),
	price       DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	min_stock   BIGINT NOT NULL DEFAULT 10,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email));

CREATE INDEX IF NOT EXISTS items_created_at_idx ON items (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS items_category_idx ON items (category);
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
