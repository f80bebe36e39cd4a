package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver.

	"github.com/prcadmin/prcadmin/internal/division"
)

const (
	// DefaultBatchSize is the number of rows inserted in a single transaction.
	DefaultBatchSize = 1000

	createTableQuery = `CREATE TABLE divisions (
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	level TEXT NOT NULL
)`
	insertQuery = `INSERT INTO divisions (code, name, level) VALUES (?, ?, ?)`
)

var _ Writer = (*SQLiteWriter)(nil)

// SQLiteWriter inserts the divisions into the divisions table of a sqlite database. The insertion order is kept by the
// rowid.
//
// Rows are inserted in batches, each in its own transaction. The pending batch is committed on Close.
type SQLiteWriter struct {
	db        *sql.DB
	insert    *sql.Stmt
	tx        *sql.Tx
	txInsert  *sql.Stmt
	pending   int
	batchSize int
}

// WriteRecord inserts a row.
func (w *SQLiteWriter) WriteRecord(ctx context.Context, r division.Record) error {
	if w.tx == nil {
		// The transaction is not bound to ctx, a canceled crawl still commits what has been written so far.
		tx, err := w.db.Begin()
		if err != nil {
			return fmt.Errorf("could not begin transaction: %w", err)
		}

		w.tx = tx
		w.txInsert = tx.Stmt(w.insert)
	}

	cols := row(r)

	if _, err := w.txInsert.ExecContext(ctx, cols[0], cols[1], cols[2]); err != nil {
		return fmt.Errorf("could not insert division: %w", err)
	}

	w.pending++

	if w.pending >= w.batchSize {
		return w.commit()
	}

	return nil
}

func (w *SQLiteWriter) commit() error {
	if w.tx == nil {
		return nil
	}

	tx := w.tx

	w.tx, w.txInsert, w.pending = nil, nil, 0

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Close commits the pending rows and closes the database.
func (w *SQLiteWriter) Close() error {
	err := w.commit()

	if cErr := w.insert.Close(); err == nil && cErr != nil {
		err = fmt.Errorf("could not close statement: %w", cErr)
	}

	if cErr := w.db.Close(); err == nil && cErr != nil {
		err = fmt.Errorf("could not close database: %w", cErr)
	}

	return err
}

// OpenSQLite creates a sqlite database at the path and returns a SQLiteWriter to it. An existing file is replaced.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteWriterOption) (*SQLiteWriter, error) {
	path = filepath.Clean(path)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not remove existing output file: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// A single writer drains the results.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		_ = db.Close() // nolint: errcheck

		return nil, fmt.Errorf("could not create divisions table: %w", err)
	}

	insert, err := db.PrepareContext(ctx, insertQuery)
	if err != nil {
		_ = db.Close() // nolint: errcheck

		return nil, fmt.Errorf("could not prepare insert statement: %w", err)
	}

	w := &SQLiteWriter{
		db:        db,
		insert:    insert,
		batchSize: DefaultBatchSize,
	}

	for _, opt := range opts {
		opt.applySQLiteWriterOption(w)
	}

	if w.batchSize < 1 {
		w.batchSize = 1
	}

	return w, nil
}

// SQLiteWriterOption is option to set up SQLiteWriter.
type SQLiteWriterOption interface {
	applySQLiteWriterOption(w *SQLiteWriter)
}

type sqliteWriterOptionFunc func(w *SQLiteWriter)

func (f sqliteWriterOptionFunc) applySQLiteWriterOption(w *SQLiteWriter) {
	f(w)
}

// WithBatchSize sets the number of rows inserted in a single transaction.
func WithBatchSize(n int) SQLiteWriterOption {
	return sqliteWriterOptionFunc(func(w *SQLiteWriter) {
		w.batchSize = n
	})
}
