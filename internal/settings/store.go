package settings

import (
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName   = "settings"
	keyServerURL = "server_url"
)

// Store persists user settings across sessions in a small bbolt database.
// Today that is a single key: the extraction endpoint URL.
type Store struct {
	db *bbolt.DB

	mu         sync.RWMutex
	defaultURL string
}

// Open opens (or creates) the settings database at path. defaultURL is
// returned whenever no endpoint has been saved yet.
func Open(path, defaultURL string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating settings bucket: %w", err)
	}

	return &Store{db: db, defaultURL: defaultURL}, nil
}

// ServerURL returns the saved extraction endpoint, or the default when none
// has been saved.
func (s *Store) ServerURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var url string
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(keyServerURL)); v != nil {
			url = string(v)
		}
		return nil
	})
	if url == "" {
		return s.defaultURL
	}
	return url
}

// SetServerURL saves the extraction endpoint. An empty URL clears the saved
// value so the default applies again.
func (s *Store) SetServerURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if url == "" {
			return b.Delete([]byte(keyServerURL))
		}
		return b.Put([]byte(keyServerURL), []byte(url))
	})
	if err != nil {
		return fmt.Errorf("saving server url: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
