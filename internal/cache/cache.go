// Package cache is the per-device key-value store holding the last-known
// settings, menu and orders. Reads are synchronous and never fail from the
// caller's point of view: storage problems are logged and reported as absent.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Prefix namespaces the core's keys away from unrelated device data
const Prefix = "pizzeria:"

// Well-known keys of the core
const (
	KeySettings = "settings"
	KeyMenu     = "menu"
	KeyOrders   = "orders"
)

// Cache is a namespaced view over an embedded buntdb database
type Cache struct {
	db     *buntdb.DB
	prefix string
	owner  bool
}

// Open opens (or creates) the database at path; ":memory:" keeps it in RAM.
// The returned cache uses the core Prefix.
func Open(path string) (*Cache, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	log.WithField("path", path).Debug("Local cache opened")
	return &Cache{db: db, prefix: Prefix, owner: true}, nil
}

// Namespace returns a view over the same database with a different prefix
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{db: c.db, prefix: prefix}
}

// Close releases the database. Namespaced views do not own it and are no-ops.
func (c *Cache) Close() error {
	if !c.owner {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get returns the raw value stored under key
func (c *Cache) Get(key string) (string, bool) {
	var value string
	err := c.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(c.key(key))
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		if !errors.Is(err, buntdb.ErrNotFound) {
			log.WithError(err).WithField("key", c.key(key)).Warn("Cache read failed")
		}
		return "", false
	}
	return value, true
}

// Set overwrites the value stored under key
func (c *Cache) Set(key, value string) {
	if err := c.set(key, value); err != nil {
		log.WithError(err).WithField("key", c.key(key)).Warn("Cache write failed")
	}
}

func (c *Cache) set(key, value string) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(c.key(key), value, nil)
		return err
	})
}

// Delete removes key; a missing key is not an error
func (c *Cache) Delete(key string) {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(c.key(key))
		return err
	})
	if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
		log.WithError(err).WithField("key", c.key(key)).Warn("Cache delete failed")
	}
}

// GetJSON decodes the value under key into v. A missing or undecodable value
// reports false and leaves v untouched.
func (c *Cache) GetJSON(key string, v any) bool {
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.WithError(err).WithField("key", c.key(key)).Warn("Cache value is not valid JSON, ignoring it")
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key
func (c *Cache) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.set(key, string(raw)); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
