// Package badgerstore is the embedded backend family. It keeps raw content and
// document status in a local BadgerDB under <workspace>:<namespace>:<id> keys.
package badgerstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

const BackendName = "badger"

// scanBatch bounds the keys read per transaction during a scan.
const scanBatch = 500

type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the database at dir, creating the directory when missing.
// inMemory ignores dir.
func Open(dir string, inMemory bool) (*Backend, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		info, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}

	logger := slog.Default().With(slog.String("component", "badger"))
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db, logger: logger}, nil
}

func (b *Backend) Name() string {
	return BackendName
}

func (b *Backend) KV(ns types.Namespace) (store.KeyValueStore, error) {
	return &KVStore{b: b, ns: ns}, nil
}

func (b *Backend) DocStatus() (store.DocStatusStore, error) {
	return &DocStatusStore{b: b}, nil
}

func (b *Backend) Vector(ns types.Namespace) (store.VectorStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (b *Backend) Graph() (store.GraphStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return store.ErrNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return store.Unavailable(err)
	}
	return err
}

// get copies the value of key out of a read transaction.
func (b *Backend) get(key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, wrapErr(err)
}

func (b *Backend) deleteKeys(keys []string) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete([]byte(k)); err != nil {
			return wrapErr(err)
		}
	}
	return wrapErr(wb.Flush())
}

// page reads up to scanBatch pairs under prefix strictly after the key after.
func (b *Backend) page(prefix, after string) ([]store.KV, error) {
	var out []store.KV
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix)
		if after != "" {
			seek = []byte(after)
		}
		for it.Seek(seek); it.Valid() && len(out) < scanBatch; it.Next() {
			item := it.Item()
			key := string(item.Key())
			if key == after {
				continue
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, store.KV{Key: key, Value: val})
		}
		return nil
	})
	return out, wrapErr(err)
}

// scan yields every pair under prefix, one read transaction per batch.
func (b *Backend) scan(prefix string, yield func(store.KV) bool) error {
	var after string
	for {
		batch, err := b.page(prefix, after)
		if err != nil {
			return err
		}
		for _, kv := range batch {
			if !yield(kv) {
				return nil
			}
		}
		if len(batch) < scanBatch {
			return nil
		}
		after = batch[len(batch)-1].Key
	}
}
