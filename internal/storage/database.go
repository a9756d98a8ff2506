package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/conorfennell/notetaker/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB is the SQLite implementation of Gateway.
type DB struct {
	conn *sql.DB
	path string
}

func openSQLite(ctx context.Context, opts Options) (*DB, error) {
	path := filepath.Join(opts.Dir, opts.Name+".db")
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w: %v", path, ErrUnavailable, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to database %s: %w: %v", path, ErrUnavailable, err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(ctx, opts.Version, opts.UniqueTitles); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// migrate creates the table and indexes when the stored version is older
// than the requested one.
func (db *DB) migrate(ctx context.Context, version int, uniqueTitles bool) error {
	var current int
	if err := db.conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return storageErr("read schema version", err)
	}
	if current > version {
		return fmt.Errorf("database %s is at version %d, requested %d: %w", db.path, current, version, ErrVersion)
	}

	if current < version {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("begin upgrade", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return storageErr("apply schema", err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return storageErr("record schema version", err)
		}
		if err := tx.Commit(); err != nil {
			return storageErr("commit upgrade", err)
		}
	}

	if uniqueTitles {
		if _, err := db.conn.ExecContext(ctx, uniqueTitleIndex); err != nil {
			return writeErr("enable unique titles", err)
		}
		return nil
	}
	if _, err := db.conn.ExecContext(ctx, dropUniqueTitleIndex); err != nil {
		return storageErr("disable unique titles", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get retrieves a note by id.
func (db *DB) Get(ctx context.Context, id int64) (domain.Note, error) {
	var n domain.Note
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, body
		FROM notes WHERE id = ?
	`, id)

	if err := row.Scan(&n.ID, &n.Title, &n.Body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Note{}, fmt.Errorf("note %d: %w", id, ErrNotFound)
		}
		return domain.Note{}, storageErr(fmt.Sprintf("get note %d", id), err)
	}
	return n, nil
}

// Add inserts a new note and returns the id the table assigned to it.
// Any id already set on note is ignored.
func (db *DB) Add(ctx context.Context, note domain.Note) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (title, body)
		VALUES (?, ?)
	`, note.Title, note.Body)
	if err != nil {
		return 0, writeErr("add note", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read assigned note id", err)
	}
	return id, nil
}

// Put replaces the note sharing note.ID, inserting it if absent.
func (db *DB) Put(ctx context.Context, note domain.Note) error {
	if note.ID <= 0 {
		return fmt.Errorf("put note with id %d: %w", note.ID, ErrStorage)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, body)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, body = excluded.body
	`, note.ID, note.Title, note.Body)
	if err != nil {
		return writeErr(fmt.Sprintf("put note %d", note.ID), err)
	}
	return nil
}

// Delete removes a note by id. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return storageErr(fmt.Sprintf("delete note %d", id), err)
	}
	return nil
}

// Scan walks the table in id order, one page per query.
func (db *DB) Scan(ctx context.Context) iter.Seq2[domain.Note, error] {
	return pagedScan(ctx, db.page)
}

func (db *DB) page(ctx context.Context, after int64, limit int) ([]domain.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, body
		FROM notes WHERE id > ?
		ORDER BY id LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, storageErr("scan notes", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Body); err != nil {
			return nil, storageErr("scan note row", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scan notes", err)
	}
	return notes, nil
}

// Drop closes the connection and deletes the database file with its
// journal side files.
func (db *DB) Drop(ctx context.Context) error {
	if err := db.conn.Close(); err != nil {
		return storageErr("close database", err)
	}
	for _, p := range []string{db.path, db.path + "-wal", db.path + "-shm", db.path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return storageErr("remove "+p, err)
		}
	}
	return nil
}

func writeErr(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%s: %w: %v", op, ErrConstraint, err)
	}
	return storageErr(op, err)
}
