// Package store persists embedding vectors in a badger key-value database, keyed by
// table name and category value.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("vector not found")

const keySeparator = 0

type Options struct {
	Path     string
	InMemory bool
	ReadOnly bool
}

type Store struct {
	db *badger.DB
}

func Open(o Options) (*Store, error) {
	opts := badger.DefaultOptions(o.Path).WithLogger(logger{})
	if o.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if o.ReadOnly {
		opts = opts.WithReadOnly(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening store %s: %w", o.Path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKey(table, key string) []byte {
	buf := make([]byte, 0, len(table)+len(key)+1)
	buf = append(buf, table...)
	buf = append(buf, keySeparator)
	return append(buf, key...)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

func (s *Store) Put(table, key string, vec []float32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(table, key), encodeVector(vec))
	})
}

// Writer batches many Puts into few transactions.
type Writer struct {
	batch *badger.WriteBatch
}

func (s *Store) NewWriter() *Writer {
	return &Writer{batch: s.db.NewWriteBatch()}
}

func (w *Writer) Put(table, key string, vec []float32) error {
	return w.batch.Set(encodeKey(table, key), encodeVector(vec))
}

// Flush commits pending writes. The writer cannot be used afterwards.
func (w *Writer) Flush() error {
	return w.batch.Flush()
}

func (w *Writer) Cancel() {
	w.batch.Cancel()
}

func (s *Store) Get(table, key string) ([]float32, error) {
	var vec []float32
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(table, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, table, key)
		}
		if err != nil {
			return err
		}
		buf, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		vec, err = decodeVector(buf)
		return err
	})
	return vec, err
}

// Keys returns the keys stored for table, in ascending order.
func (s *Store) Keys(table string) ([]string, error) {
	prefix := encodeKey(table, "")
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

// Tables returns the names of all tables holding at least one vector, in ascending order.
func (s *Store) Tables() ([]string, error) {
	var tables []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); {
			key := it.Item().Key()
			end := bytes.IndexByte(key, keySeparator)
			if end < 0 {
				it.Next()
				continue
			}
			table := string(key[:end])
			tables = append(tables, table)
			// skip the remaining keys of this table
			it.Seek(append([]byte(table), keySeparator+1))
		}
		return nil
	})
	return tables, err
}

// logger routes badger's logging through zerolog.
type logger struct{}

func (logger) Errorf(format string, args ...interface{}) {
	log.Error().Str("Component", "badger").Msgf(format, args...)
}

func (logger) Warningf(format string, args ...interface{}) {
	log.Warn().Str("Component", "badger").Msgf(format, args...)
}

func (logger) Infof(format string, args ...interface{}) {
	log.Debug().Str("Component", "badger").Msgf(format, args...)
}

func (logger) Debugf(format string, args ...interface{}) {
	log.Debug().Str("Component", "badger").Msgf(format, args...)
}
