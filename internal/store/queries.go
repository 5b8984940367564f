package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TestRecord is one test's persisted outcome and per-file dependency map,
// for a single variant.
type TestRecord struct {
	Failed       bool
	Result       string
	Dependencies map[string][]uint32 // file path -> block checksums
}

// ReadData loads every test record for the store's active variant.
func (s *Store) ReadData(ctx context.Context) (map[string]TestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, result, failed FROM node WHERE variant = ?", s.Variant)
	if err != nil {
		return nil, fmt.Errorf("reading node rows: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor, nothing actionable on close error

	records := make(map[string]TestRecord)

	for rows.Next() {
		var (
			name   string
			result string
			failed bool
		)

		if err := rows.Scan(&name, &result, &failed); err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}

		records[name] = TestRecord{Failed: failed, Result: result, Dependencies: map[string][]uint32{}}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node rows: %w", err)
	}

	fileRows, err := s.db.QueryContext(ctx,
		"SELECT node_name, file_name, checksums FROM node_file WHERE node_variant = ?", s.Variant)
	if err != nil {
		return nil, fmt.Errorf("reading node_file rows: %w", err)
	}
	defer fileRows.Close() //nolint:errcheck // read-only cursor, nothing actionable on close error

	for fileRows.Next() {
		var name, file, checksumsJSON string

		if err := fileRows.Scan(&name, &file, &checksumsJSON); err != nil {
			return nil, fmt.Errorf("scanning node_file row: %w", err)
		}

		var checksums []uint32
		if err := json.Unmarshal([]byte(checksumsJSON), &checksums); err != nil {
			return nil, fmt.Errorf("decoding checksums for %s/%s: %w", name, file, err)
		}

		rec, ok := records[name]
		if !ok {
			continue
		}

		rec.Dependencies[file] = checksums
	}

	if err := fileRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node_file rows: %w", err)
	}

	return records, nil
}

// SetDependencies upserts one test's record and atomically replaces its
// file-dependency rows.
func (s *Store) SetDependencies(
	ctx context.Context,
	testID string,
	dependencies map[string][]uint32,
	failed bool,
	result string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO node (variant, name, result, failed) VALUES (?, ?, ?, ?)
		 ON CONFLICT(variant, name) DO UPDATE SET result = excluded.result, failed = excluded.failed`,
		s.Variant, testID, result, failed)
	if err != nil {
		return fmt.Errorf("upserting node row: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM node_file WHERE node_variant = ? AND node_name = ?", s.Variant, testID)
	if err != nil {
		return fmt.Errorf("clearing stale node_file rows: %w", err)
	}

	for file, checksums := range dependencies {
		checksumsJSON, err := json.Marshal(checksums)
		if err != nil {
			return fmt.Errorf("encoding checksums for %s: %w", file, err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO node_file (node_variant, node_name, file_name, checksums) VALUES (?, ?, ?, ?)",
			s.Variant, testID, file, string(checksumsJSON))
		if err != nil {
			return fmt.Errorf("inserting node_file row for %s: %w", file, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dependency update: %w", err)
	}

	return nil
}

// CollectGarbage deletes records for test ids not present in keepTestIDs.
// node_file rows are removed via cascade.
func (s *Store) CollectGarbage(ctx context.Context, keepTestIDs map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM node WHERE variant = ?", s.Variant)
	if err != nil {
		return fmt.Errorf("reading node names: %w", err)
	}

	var stale []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close() //nolint:errcheck

			return fmt.Errorf("scanning node name: %w", err)
		}

		if !keepTestIDs[name] {
			stale = append(stale, name)
		}
	}

	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck

		return fmt.Errorf("iterating node names: %w", err)
	}

	rows.Close() //nolint:errcheck

	if len(stale) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning garbage collection transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, name := range stale {
		_, err := tx.ExecContext(ctx, "DELETE FROM node WHERE variant = ? AND name = ?", s.Variant, name)
		if err != nil {
			return fmt.Errorf("deleting stale node %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing garbage collection: %w", err)
	}

	return nil
}

// SourceTreeStateEntry is one file's persisted mtime/content-hash pair.
type SourceTreeStateEntry struct {
	ModTime     time.Time
	ContentSHA1 string
}

// WriteSourceTreeState flushes the current source-tree mtimes and content
// hashes to the metadata table, scoped to the store's variant, under the
// "mtimes" and "file_checksums" attributes spec.md §4.5 names (dataid
// `<variant>:<attribute>`).
func (s *Store) WriteSourceTreeState(ctx context.Context, state map[string]SourceTreeStateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mtimes := make(map[string]time.Time, len(state))
	checksums := make(map[string]string, len(state))

	for path, e := range state {
		mtimes[path] = e.ModTime
		checksums[path] = e.ContentSHA1
	}

	if err := s.writeMetadata(ctx, "mtimes", mtimes); err != nil {
		return err
	}

	return s.writeMetadata(ctx, "file_checksums", checksums)
}

func (s *Store) writeMetadata(ctx context.Context, attribute string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", attribute, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metadata (dataid, data) VALUES (?, ?)
		 ON CONFLICT(dataid) DO UPDATE SET data = excluded.data`,
		s.Variant+":"+attribute, string(data))
	if err != nil {
		return fmt.Errorf("writing %s: %w", attribute, err)
	}

	return nil
}

// ReadSourceTreeState loads the previously persisted mtime/content-hash
// pairs for the store's variant. Returns an empty map if nothing has been
// written yet (first run).
func (s *Store) ReadSourceTreeState(ctx context.Context) (map[string]SourceTreeStateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mtimes map[string]time.Time

	if err := s.readMetadata(ctx, "mtimes", &mtimes); err != nil {
		return nil, err
	}

	var checksums map[string]string

	if err := s.readMetadata(ctx, "file_checksums", &checksums); err != nil {
		return nil, err
	}

	out := make(map[string]SourceTreeStateEntry, len(mtimes))
	for path, mt := range mtimes {
		out[path] = SourceTreeStateEntry{ModTime: mt, ContentSHA1: checksums[path]}
	}

	return out, nil
}

// readMetadata decodes the JSON blob stored under dataid
// `<variant>:<attribute>` into out, leaving out untouched (its zero value)
// if no row exists yet.
func (s *Store) readMetadata(ctx context.Context, attribute string, out any) error {
	var data string

	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM metadata WHERE dataid = ?", s.Variant+":"+attribute).Scan(&data)

	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return fmt.Errorf("reading %s: %w", attribute, err)
	}

	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("decoding %s: %w", attribute, err)
	}

	return nil
}
