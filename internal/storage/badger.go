package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "kv:"

// BadgerStore persists key/value pairs in a BadgerDB database.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))

	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(keyPrefix + key))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}

			err = item.Value(func(val []byte) error {
				result[key] = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}

	return result, nil
}

func (s *BadgerStore) Set(values map[string]string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for key, value := range values {
			if err := txn.Set([]byte(keyPrefix+key), []byte(value)); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to write keys: %w", err)
	}

	return nil
}

func (s *BadgerStore) Delete(keys ...string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(keyPrefix + key)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
