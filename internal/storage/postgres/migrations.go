package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    organizer_id TEXT NOT NULL,
    capacity INTEGER NOT NULL DEFAULT 0,
    estimated_cost BIGINT,
    actual_cost BIGINT,
    final_cost BIGINT,
    cost_locked BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL,
    settled_at BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    activity_id TEXT NOT NULL REFERENCES activities(id),
    person_id TEXT NOT NULL,
    status TEXT NOT NULL,
    amount_owed BIGINT NOT NULL DEFAULT 0 CHECK (amount_owed >= 0),
    payment_status TEXT NOT NULL DEFAULT 'unpaid',
    paid BOOLEAN NOT NULL DEFAULT FALSE,
    paid_by TEXT,
    transport TEXT NOT NULL DEFAULT '',
    seats INTEGER NOT NULL DEFAULT 0,
    pickup_note TEXT,
    driver_id TEXT,
    status_changed_at BIGINT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (activity_id, person_id)
);

CREATE TABLE IF NOT EXISTS tickets (
    ref TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS ticket_links (
    activity_id TEXT NOT NULL REFERENCES activities(id),
    ticket_ref TEXT NOT NULL,
    internal BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (activity_id, ticket_ref)
);

CREATE INDEX IF NOT EXISTS idx_participants_activity_status ON participants(activity_id, status);
CREATE INDEX IF NOT EXISTS idx_participants_driver ON participants(activity_id, driver_id);
`

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
