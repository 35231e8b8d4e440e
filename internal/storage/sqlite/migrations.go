package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    organizer_id TEXT NOT NULL,
    capacity INTEGER NOT NULL DEFAULT 0,
    estimated_cost INTEGER,
    actual_cost INTEGER,
    final_cost INTEGER,
    cost_locked INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    settled_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    activity_id TEXT NOT NULL,
    person_id TEXT NOT NULL,
    status TEXT NOT NULL,
    amount_owed INTEGER NOT NULL DEFAULT 0 CHECK (amount_owed >= 0),
    payment_status TEXT NOT NULL DEFAULT 'unpaid',
    paid INTEGER NOT NULL DEFAULT 0,
    paid_by TEXT,
    transport TEXT NOT NULL DEFAULT '',
    seats INTEGER NOT NULL DEFAULT 0,
    pickup_note TEXT,
    driver_id TEXT,
    status_changed_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (activity_id, person_id),
    FOREIGN KEY (activity_id) REFERENCES activities(id)
);

CREATE TABLE IF NOT EXISTS tickets (
    ref TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ticket_links (
    activity_id TEXT NOT NULL,
    ticket_ref TEXT NOT NULL,
    internal INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (activity_id, ticket_ref),
    FOREIGN KEY (activity_id) REFERENCES activities(id)
);

CREATE INDEX IF NOT EXISTS idx_participants_activity_status ON participants(activity_id, status);
CREATE INDEX IF NOT EXISTS idx_participants_driver ON participants(activity_id, driver_id);
CREATE INDEX IF NOT EXISTS idx_ticket_links_activity_id ON ticket_links(activity_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
