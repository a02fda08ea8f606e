package persistence

import (
	"context"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// BadgerDirName is the subdirectory of the local directory holding the
// badger files.
const BadgerDirName = "badger"

// recordKeyPrefix namespaces record keys inside the badger keyspace.
const recordKeyPrefix = "record:"

// BadgerBackend keeps BSON-encoded records in a badger database.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens dir/badger. An empty dir opens an in-memory
// database.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(dir, BadgerDirName))
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, errors.Wrap(err, "opening badger")
	}
	return &BadgerBackend{db: db}, nil
}

// Name returns "badger".
func (b *BadgerBackend) Name() string { return types.EngineBadger }

func recordKey(id string) []byte {
	return []byte(recordKeyPrefix + id)
}

// Save writes the record in one update transaction.
func (b *BadgerBackend) Save(_ context.Context, id string, rec types.Record) error {
	data, err := bson.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(id), data)
	})
}

// Load reads the record under id.
func (b *BadgerBackend) Load(_ context.Context, id string) (types.Record, error) {
	var rec types.Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.Wrapf(ErrRecordNotFound, "identifier %q", id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return bson.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

// Close closes the database.
func (b *BadgerBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
