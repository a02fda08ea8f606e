package persistence

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

//go:embed records.sql
var recordsSQL string

// SQLiteDBName is the database file created in the local directory.
const SQLiteDBName = "records.db"

// SQLiteBackend keeps records in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens or creates dir/records.db and its schema.
func NewSQLiteBackend(ctx context.Context, dir string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, SQLiteDBName))
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}
	if _, err := db.ExecContext(ctx, recordsSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating records schema")
	}
	return &SQLiteBackend{db: db}, nil
}

// Name returns "sqlite".
func (b *SQLiteBackend) Name() string { return types.EngineSQLite }

// Save upserts the record.
func (b *SQLiteBackend) Save(ctx context.Context, id string, rec types.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return errors.Wrap(err, "encoding fields")
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO records (id, entity, fields, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET entity = excluded.entity, fields = excluded.fields, updated_at = excluded.updated_at`,
		id, rec.Entity, string(fields), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "upserting record %q", id)
	}
	return nil
}

// Load reads the record under id.
func (b *SQLiteBackend) Load(ctx context.Context, id string) (types.Record, error) {
	var entity, fields string
	err := b.db.QueryRowContext(ctx, `SELECT entity, fields FROM records WHERE id = ?`, id).Scan(&entity, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, errors.Wrapf(ErrRecordNotFound, "identifier %q", id)
	}
	if err != nil {
		return types.Record{}, errors.Wrapf(err, "selecting record %q", id)
	}

	rec := types.Record{ID: id, Entity: entity}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return types.Record{}, errors.Wrapf(err, "decoding fields of %q", id)
	}
	return rec, nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
