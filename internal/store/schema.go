package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion tracks the normalization contract the stored checksums were
// computed under. A mismatch forces a one-shot re-record rather than trusting
// stale data (spec.md's design note on block-body normalization).
const schemaVersion = 1

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS metadata (
	dataid TEXT PRIMARY KEY,
	data TEXT
);

CREATE TABLE IF NOT EXISTS node (
	variant TEXT NOT NULL,
	name TEXT NOT NULL,
	result TEXT NOT NULL,
	failed INTEGER NOT NULL,
	PRIMARY KEY (variant, name)
);

CREATE TABLE IF NOT EXISTS node_file (
	node_variant TEXT NOT NULL,
	node_name TEXT NOT NULL,
	file_name TEXT NOT NULL,
	checksums TEXT NOT NULL,
	FOREIGN KEY (node_variant, node_name)
		REFERENCES node(variant, name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_node_file_lookup ON node_file(node_variant, node_name);
`

// initSchema creates the schema if absent and checks its version. Foreign
// key enforcement itself is requested via the connection DSN (see Open),
// not here, since a PRAGMA executed against one pooled connection would not
// necessarily apply to the connection a later statement is served from.
func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTablesSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return checkSchemaVersion(ctx, db)
}

func checkSchemaVersion(ctx context.Context, db *sql.DB) error {
	const key = "schema_version"

	var stored string

	err := db.QueryRowContext(ctx, "SELECT data FROM metadata WHERE dataid = ?", key).Scan(&stored)

	switch {
	case err == sql.ErrNoRows:
		_, err = db.ExecContext(ctx,
			"INSERT INTO metadata (dataid, data) VALUES (?, ?)", key, fmt.Sprintf("%d", schemaVersion))

		return err
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case stored != fmt.Sprintf("%d", schemaVersion):
		if _, err := db.ExecContext(ctx, "DELETE FROM node"); err != nil {
			return fmt.Errorf("clearing stale node rows: %w", err)
		}

		if _, err := db.ExecContext(ctx, "DELETE FROM node_file"); err != nil {
			return fmt.Errorf("clearing stale node_file rows: %w", err)
		}

		_, err := db.ExecContext(ctx,
			"UPDATE metadata SET data = ? WHERE dataid = ?", fmt.Sprintf("%d", schemaVersion), key)

		return err
	default:
		return nil
	}
}
