package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
)

// zstdMagic prefixes every zstd frame
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// BadgerCache is a cache implementation using BadgerDB. Values are stored
// zstd-compressed; uncompressed values written by older versions are
// returned as is.
type BadgerCache struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	stopGC    chan struct{}
	closeOnce sync.Once
}

// NewBadgerCache creates a new BadgerDB cache
func NewBadgerCache(opts Options) (*BadgerCache, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Directory == "" {
			return nil, errors.New("cache directory is required")
		}

		// Ensure directory exists
		if err := os.MkdirAll(opts.Directory, 0755); err != nil {
			return nil, err
		}

		badgerOpts = badger.DefaultOptions(opts.Directory)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(newBadgerLogger(opts.Logger))
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		decoder.Close()
		_ = encoder.Close()
		return nil, err
	}

	c := &BadgerCache{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		stopGC:  make(chan struct{}),
	}

	// Start background garbage collection
	if !opts.InMemory {
		go c.runGC(5 * time.Minute)
	}

	return c, nil
}

func (c *BadgerCache) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.db.RunValueLogGC(0.5)
		case <-c.stopGC:
			return
		}
	}
}

// Get retrieves a value from cache
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrCacheMiss
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(value, zstdMagic) {
		return value, nil
	}
	decoded, err := c.decoder.DecodeAll(value, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd: %w", err)
	}
	return decoded, nil
}

// Set stores a value in cache with TTL
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	compressed := c.encoder.EncodeAll(value, make([]byte, 0, len(value)/2))

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), compressed)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Has checks if a key exists in cache
func (c *BadgerCache) Has(ctx context.Context, key string) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})

	return err == nil
}

// Delete removes a key from cache
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close releases cache resources
func (c *BadgerCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopGC)
		c.decoder.Close()
		err = errors.Join(c.encoder.Close(), c.db.Close())
	})
	return err
}

// Count returns the number of live entries whose key starts with prefix
func (c *BadgerCache) Count(prefix string) (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
