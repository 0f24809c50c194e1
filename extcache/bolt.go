// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extcache

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// BoltCache is the embedded, single-process reference implementation of
// Cache: one bucket per star (bucket name = star name), keyed by the
// header's stable Hash(), value = msgpack-encoded (header, body) pair.
// boltdb/bolt serialises all access through a single writer lock, so
// BoltCache is safe for concurrent use without its own locking, per
// spec.md §5's "must be thread-safe" requirement.
type BoltCache struct {
	db *bolt.DB
}

// OpenBoltCache opens (creating if absent) a BoltDB file at path as the
// external segment-body cache.
func OpenBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("extcache: opening bolt db: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func bucketKey(h segment.Header) []byte {
	return []byte(fmt.Sprintf("%016x", h.Hash()))
}

// Get implements Cache.
func (c *BoltCache) Get(starName string, h segment.Header) (*segment.Body, bool, error) {
	var entry *wireEntry
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(starName))
		if b == nil {
			return nil
		}
		raw := b.Get(bucketKey(h))
		if raw == nil {
			return nil
		}
		var e wireEntry
		if err := msgpack.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("extcache: decoding cached entry: %w", err)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}
	return fromWireBody(entry.Body), true, nil
}

// Put implements Cache.
func (c *BoltCache) Put(starName string, h segment.Header, body *segment.Body) error {
	raw, err := msgpack.Marshal(&wireEntry{Header: toWireHeader(h), Body: toWireBody(body)})
	if err != nil {
		return fmt.Errorf("extcache: encoding entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(starName))
		if err != nil {
			return err
		}
		return b.Put(bucketKey(h), raw)
	})
}

// Delete implements Cache.
func (c *BoltCache) Delete(starName string, h segment.Header) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(starName))
		if b == nil {
			return nil
		}
		return b.Delete(bucketKey(h))
	})
}

// Close implements Cache.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
