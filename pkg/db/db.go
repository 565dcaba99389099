// Package db is the collection store of the fixture backend: one logical
// collection per asset type over an embedded key-value database.
//
// Records cross this boundary by value. Every read unmarshals a fresh copy
// and every write marshals the given value, so internal bookkeeping of the
// backing database can never leak into API responses, and callers can never
// alias stored state.
package db

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Driver is an embedded database holding JSON documents in named collections.
//
// A collection is a key prefix at driver level; drivers convert their own
// not-found errors into the domain Missing error.
type Driver interface {
	// Close syncs data to the backing file, if any, and releases the database.
	Close() error

	// Set writes the JSON document under (collection, key).
	Set(collection, key, document string) error

	// Get reads the JSON document at (collection, key).
	Get(collection, key string) (string, error)

	// Delete removes a single document.
	Delete(collection, key string) error

	// DeleteAll wipes every collection. Used by the reset endpoint.
	DeleteAll() error

	// GetAll returns all documents of a collection, keyed by record id.
	GetAll(collection string) (map[string]string, error)

	// Shrink compacts the backing file. Called periodically by the autosave
	// loop; a no-op for purely in-memory databases.
	Shrink() error
}

// Record is the pointer shape every storable type provides.
type Record[T any] interface {
	*T
	Identity() string
	SetIdentity(id string)
	SetTimestamps(now time.Time)
}

type settings struct {
	newID func() string
	now   func() time.Time
}

type Option func(*settings)

// WithClock replaces the timestamp source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator replaces the id source. For tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *settings) { s.newID = newID }
}

// Collection is a typed view over one driver collection.
type Collection[T any, PT Record[T]] struct {
	driver Driver
	name   string
	newID  func() string
	now    func() time.Time
}

func NewCollection[T any, PT Record[T]](d Driver, name string, opt ...Option) *Collection[T, PT] {
	s := settings{newID: NewID, now: time.Now}
	for _, o := range opt {
		o(&s)
	}
	return &Collection[T, PT]{driver: d, name: name, newID: s.newID, now: s.now}
}

func (c *Collection[T, PT]) Name() string {
	return c.name
}

// Insert stores rec, assigning an id when it has none, and stamping
// created/updated. The stored record is returned.
func (c *Collection[T, PT]) Insert(rec T) (T, error) {
	p := PT(&rec)
	if p.Identity() == "" {
		p.SetIdentity(c.newID())
	}
	p.SetTimestamps(c.now())

	doc, err := codec.MarshalToString(rec)
	if err != nil {
		return *new(T), err
	}
	if err := c.driver.Set(c.name, p.Identity(), doc); err != nil {
		return *new(T), err
	}
	return rec, nil
}

// Get fetches a record by id. The driver reports absence as a domain
// Missing error.
func (c *Collection[T, PT]) Get(id string) (T, error) {
	doc, err := c.driver.Get(c.name, id)
	if err != nil {
		return *new(T), err
	}
	var rec T
	if err := codec.UnmarshalFromString(doc, &rec); err != nil {
		return *new(T), err
	}
	return rec, nil
}

// Find returns all records satisfying pred, in unspecified order.
// A nil pred matches everything.
func (c *Collection[T, PT]) Find(pred func(T) bool) ([]T, error) {
	docs, err := c.driver.GetAll(c.name)
	if err != nil {
		return nil, err
	}

	found := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := codec.UnmarshalFromString(doc, &rec); err != nil {
			return nil, err
		}
		if pred == nil || pred(rec) {
			found = append(found, rec)
		}
	}
	return found, nil
}

// FindOne returns the first record satisfying pred, if any.
func (c *Collection[T, PT]) FindOne(pred func(T) bool) (T, bool, error) {
	found, err := c.Find(pred)
	if err != nil || len(found) == 0 {
		return *new(T), false, err
	}
	return found[0], true, nil
}

// Update overwrites an existing record and stamps its updated time.
// Fails with the domain Missing error when no record has rec's id.
func (c *Collection[T, PT]) Update(rec T) (T, error) {
	p := PT(&rec)
	if _, err := c.driver.Get(c.name, p.Identity()); err != nil {
		return *new(T), err
	}
	p.SetTimestamps(c.now())

	doc, err := codec.MarshalToString(rec)
	if err != nil {
		return *new(T), err
	}
	if err := c.driver.Set(c.name, p.Identity(), doc); err != nil {
		return *new(T), err
	}
	return rec, nil
}

// Remove deletes one record by id.
func (c *Collection[T, PT]) Remove(id string) error {
	return c.driver.Delete(c.name, id)
}

// RemoveWhere deletes every record satisfying pred and reports how many went.
func (c *Collection[T, PT]) RemoveWhere(pred func(T) bool) (int, error) {
	found, err := c.Find(pred)
	if err != nil {
		return 0, err
	}
	for _, rec := range found {
		if err := c.driver.Delete(c.name, PT(&rec).Identity()); err != nil {
			return 0, err
		}
	}
	return len(found), nil
}
