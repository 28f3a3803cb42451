package sqlite

import "database/sql"

// schema sets up the database. It runs on startup to ensure tables exist.
// Expenses are stored as whole JSON documents; expense_members indexes them
// by participant user reference for listing and balance queries.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    total REAL NOT NULL,
    document TEXT NOT NULL,
    created_by TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_members (
    expense_id TEXT NOT NULL,
    user_ref TEXT NOT NULL,
    PRIMARY KEY (expense_id, user_ref),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_expense_members_user_ref ON expense_members(user_ref);
CREATE INDEX IF NOT EXISTS idx_expenses_created_at ON expenses(created_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
