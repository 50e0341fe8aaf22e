package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. Sequential entity ids come
// from the bigserial columns; events are never deleted so the sequence
// doubles as the catalog size.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id                    BIGSERIAL PRIMARY KEY,
	name                  TEXT        NOT NULL,
	description           TEXT        NOT NULL,
	venue                 TEXT        NOT NULL,
	ticket_price          BIGINT      NOT NULL CHECK (ticket_price >= 0),
	max_tickets           BIGINT      NOT NULL CHECK (max_tickets > 0),
	tickets_sold          BIGINT      NOT NULL DEFAULT 0,
	event_date            TIMESTAMPTZ NOT NULL,
	banner_image          TEXT        NOT NULL,
	organizer             TEXT        NOT NULL,
	total_earnings        BIGINT      NOT NULL DEFAULT 0,
	total_resale_earnings BIGINT      NOT NULL DEFAULT 0,
	CONSTRAINT events_capacity CHECK (tickets_sold <= max_tickets)
);

CREATE INDEX IF NOT EXISTS events_organizer_idx ON events (organizer, id);

CREATE TABLE IF NOT EXISTS tickets (
	id            BIGSERIAL PRIMARY KEY,
	event_id      BIGINT      NOT NULL REFERENCES events (id),
	owner_identity TEXT       NOT NULL,
	used          BOOLEAN     NOT NULL DEFAULT FALSE,
	purchased_at  TIMESTAMPTZ NOT NULL,
	acquired_at   TIMESTAMPTZ NOT NULL,
	metadata_ref  TEXT        NOT NULL DEFAULT '',
	origin_tx_ref TEXT        NOT NULL DEFAULT '',
	resale_count  BIGINT      NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS tickets_owner_idx ON tickets (owner_identity, acquired_at, id);

CREATE TABLE IF NOT EXISTS listings (
	ticket_id BIGINT      PRIMARY KEY REFERENCES tickets (id),
	seller    TEXT        NOT NULL,
	ask_price BIGINT      NOT NULL CHECK (ask_price > 0),
	listed_at TIMESTAMPTZ NOT NULL,
	position  BIGSERIAL
);

CREATE TABLE IF NOT EXISTS balances (
	identity       TEXT   PRIMARY KEY,
	seller_pool    BIGINT NOT NULL DEFAULT 0 CHECK (seller_pool >= 0),
	organizer_pool BIGINT NOT NULL DEFAULT 0 CHECK (organizer_pool >= 0)
);
`

// EnsureSchema creates the ledger tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
