// Package bunt backs the collection store with buntdb, an embedded in-memory
// key-value database with an append-only file for persistence. Collections
// are key prefixes, "<collection>##<id>".
package bunt

import (
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/datakin/workbench/pkg/db"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
)

// separator between collection name and record id in database keys.
const collectionSepa = "##"

// InMemory opens a database that vanishes on close. For tests and for runs
// that should not keep state between sessions.
const InMemory = ":memory:"

type DB struct {
	bunt *buntdb.DB
}

var _ db.Driver = (*DB)(nil)

// Open opens (creating if needed) the database file at path,
// or a transient database when path is InMemory.
func Open(path string) (*DB, error) {
	b, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	// the fixture favours fast writes over durability; the autosave loop
	// syncs via Shrink anyway.
	if err := b.SetConfig(buntdb.Config{SyncPolicy: buntdb.EverySecond}); err != nil {
		b.Close()
		return nil, err
	}
	return &DB{bunt: b}, nil
}

func (d *DB) Close() error {
	return d.bunt.Close()
}

func key(collection, id string) string {
	return collection + collectionSepa + id
}

func (d *DB) Set(collection, id, document string) error {
	return d.bunt.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key(collection, id), document, nil)
		return err
	})
}

func (d *DB) Get(collection, id string) (string, error) {
	var doc string
	err := d.bunt.View(func(tx *buntdb.Tx) error {
		found, err := tx.Get(key(collection, id))
		if err != nil {
			return err
		}
		doc = found
		return nil
	})
	if err == buntdb.ErrNotFound {
		return "", kerr.Missing{Collection: collection, Identity: id}
	}
	return doc, err
}

func (d *DB) Delete(collection, id string) error {
	err := d.bunt.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key(collection, id))
		return err
	})
	if err == buntdb.ErrNotFound {
		return kerr.Missing{Collection: collection, Identity: id}
	}
	return err
}

func (d *DB) DeleteAll() error {
	return d.bunt.Update(func(tx *buntdb.Tx) error {
		return tx.DeleteAll()
	})
}

func (d *DB) GetAll(collection string) (map[string]string, error) {
	prefix := collection + collectionSepa
	docs := map[string]string{}
	err := d.bunt.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(k, v string) bool {
			docs[strings.TrimPrefix(k, prefix)] = v
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (d *DB) Shrink() error {
	err := d.bunt.Shrink()
	if err == buntdb.ErrDatabaseClosed {
		return nil
	}
	return err
}
