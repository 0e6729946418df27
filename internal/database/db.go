package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/rs/zerolog/log"
)

// DB owns the single physical connection to the encrypted store. The schema
// manager, taxonomy and ledger repos all operate through it and hold no
// state of their own.
type DB struct {
	path string
	conn *sql.DB
}

// Open unlocks the encrypted store at path with the supplied key and verifies
// the unlock with a schema-introspection query. A failed verification is
// reported as ErrAuthentication: there is no way to distinguish a wrong key
// from a corrupt file without the key.
//
// The key is opaque bytes from the key provider; how it was derived is not
// this layer's business.
func Open(path string, key []byte) (*DB, error) {
	d := &DB{path: path}
	if err := d.open(key); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DB) open(key []byte) error {
	if d.conn != nil {
		// Reopening an open handle is a no-op.
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_pragma_key=x'%s'",
		d.path, hex.EncodeToString(key))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open store %s: %w", d.path, err)
	}
	conn.SetMaxOpenConns(1) // sqlite
	conn.SetConnMaxLifetime(0)

	// A benign introspection query fails on a wrong key or a file that is
	// not a SQLCipher database. Must not be ignored.
	var n int
	if err := conn.QueryRow(`SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		_ = conn.Close()
		log.Error().Str("path", d.path).Err(err).Msg("store unlock failed")
		return fmt.Errorf("unlock %s: %w: %v", d.path, ErrAuthentication, err)
	}

	d.conn = conn
	return nil
}

// Handle returns the underlying connection.
func (d *DB) Handle() *sql.DB { return d.conn }

// Path returns the store file path.
func (d *DB) Path() string { return d.path }

// Close releases the connection. The handle cannot be reused afterwards.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// WithTx runs fn in a transaction.
func (d *DB) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Now returns UTC time truncated to seconds (consistent with SQLite default).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func (d *DB) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

func (d *DB) indexExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	return n > 0, nil
}
