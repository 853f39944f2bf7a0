package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver

	"github.com/calvinalkan/sitecontent/pkg/content"
)

// SQLiteFile is the default name of the SQLite export.
const SQLiteFile = "content.db"

// SchemaVersion is stored in the export's user_version pragma. Renderers
// should refuse a database with a version they do not know.
const SchemaVersion = 1

const sqliteSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE records (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	position   INTEGER NOT NULL,
	ord        INTEGER,
	slug       TEXT,
	title      TEXT,
	difficulty TEXT,
	body       TEXT,
	source     TEXT NOT NULL,
	fields     TEXT NOT NULL,
	PRIMARY KEY (kind, id)
) WITHOUT ROWID;

CREATE UNIQUE INDEX records_slug ON records (slug) WHERE slug IS NOT NULL;
CREATE INDEX records_position ON records (kind, position);
CREATE INDEX records_difficulty ON records (kind, difficulty);

CREATE TABLE tags (
	kind     TEXT NOT NULL,
	id       TEXT NOT NULL,
	tag      TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (kind, tag, id)
) WITHOUT ROWID;
`

// WriteSQLite writes the snapshot q is bound to as an SQLite database at path.
//
// The database is built in "<path>.tmp" with fast, non-durable pragmas and
// renamed over path once complete, so readers see either the previous export
// or the new one. Concurrent exporters are serialized by a lock file.
func WriteSQLite(ctx context.Context, path string, q *content.Query) error {
	err := os.MkdirAll(filepath.Dir(path), dirPerms)
	if err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}

	q = q.Pin()

	err = withLock(path, func() error {
		return writeSQLiteLocked(ctx, path, q)
	})
	if err != nil {
		return fmt.Errorf("export: sqlite %s: %w", path, err)
	}

	return nil
}

func writeSQLiteLocked(ctx context.Context, path string, q *content.Query) error {
	tmpPath := path + ".tmp"

	// Clean up a stale temp DB from a previous crash.
	for _, p := range []string{tmpPath, tmpPath + "-journal"} {
		rmErr := os.Remove(p)
		if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("remove temp db: %w", rmErr)
		}
	}

	db, err := openSqliteUnsafe(ctx, tmpPath)
	if err != nil {
		return err
	}

	fillErr := fill(ctx, db, q)
	closeErr := db.Close()

	if fillErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)

		if closeErr != nil {
			closeErr = fmt.Errorf("sqlite: close: %w", closeErr)
		}

		return errors.Join(fillErr, closeErr)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("swap db: %w", err)
	}

	return nil
}

// openSqliteUnsafe opens a disposable database with journaling and syncing
// off. A crash mid-export leaves only the temp file behind.
func openSqliteUnsafe(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	// Single connection ensures pragma consistency.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("sqlite: ping: %w", err), db.Close())
	}

	_, err = db.ExecContext(ctx, `
		PRAGMA journal_mode = OFF;
		PRAGMA synchronous = OFF;
		PRAGMA locking_mode = EXCLUSIVE;
		PRAGMA temp_store = MEMORY;
		PRAGMA foreign_keys = OFF;
	`)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("sqlite: apply unsafe pragmas: %w", err), db.Close())
	}

	return db, nil
}

func fill(ctx context.Context, db *sql.DB, q *content.Query) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, sqliteSchema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('snapshot_id', ?), ('built_at', ?)`,
		q.SnapshotID().String(), q.BuiltAt().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (kind, id, position, ord, slug, title, difficulty, body, source, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare records: %w", err)
	}

	defer func() { _ = recStmt.Close() }()

	tagStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO tags (kind, id, tag, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tags: %w", err)
	}

	defer func() { _ = tagStmt.Close() }()

	for _, kind := range q.Kinds() {
		for pos, row := range rowsOf(q, kind) {
			fields, marshalErr := json.Marshal(row.Record)
			if marshalErr != nil {
				return fmt.Errorf("encode %s %s: %w", kind, row.ID, marshalErr)
			}

			_, err = recStmt.ExecContext(ctx,
				string(kind), row.ID, pos, nullInt(row.Order),
				nullString(row.Slug), nullString(row.Title()), nullString(row.Difficulty()), nullString(row.Body),
				row.Source, string(fields))
			if err != nil {
				return fmt.Errorf("insert %s %s: %w", kind, row.ID, err)
			}

			for i, tag := range row.Tags() {
				_, err = tagStmt.ExecContext(ctx, string(kind), row.ID, tag, i)
				if err != nil {
					return fmt.Errorf("insert tag %q of %s %s: %w", tag, kind, row.ID, err)
				}
			}
		}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
	if err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	committed = true

	return nil
}

// rowsOf lists every record of kind in order-field order. Structured records
// come back as documents with empty slug and body.
func rowsOf(q *content.Query, kind content.Kind) []content.Document {
	n := q.Count(kind)

	if kind == content.KindDocument {
		return q.ListDocuments(0, n)
	}

	records := q.ListByOrder(kind, 0, n)
	out := make([]content.Document, len(records))

	for i, r := range records {
		out[i] = content.Document{Record: r}
	}

	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: *v, Valid: true}
}
