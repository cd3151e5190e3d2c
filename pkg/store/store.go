package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dkralj/hepmeter/pkg/logger"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketState = []byte("meter_state") // id -> State (JSON)
)

// boltStore implements Store using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
	mu     sync.RWMutex
}

// New creates a BoltDB-backed store.
//
// Parameters:
//   - cfg: Store configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if the database cannot be opened
func New(cfg Config, log logger.Logger) (Store, error) {
	// Set default timeout.
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	// Expand home directory in path.
	dbPath := expandHome(cfg.DBPath)

	// Create directory if it doesn't exist.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database.
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize bucket.
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketState)
		return createErr
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	log.Debug("state store opened", "db_path", dbPath)

	return &boltStore{
		db:     db,
		logger: log,
	}, nil
}

// Load implements Store.Load.
func (s *boltStore) Load(id string) (*State, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &State{}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		data := b.Get([]byte(id))

		if data == nil {
			// Nothing stored yet, start from a zero state.
			return nil
		}

		if unmarshalErr := json.Unmarshal(data, state); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal state: %w", unmarshalErr)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}

// Save implements Store.Save.
func (s *boltStore) Save(id string, state *State) error {
	if id == "" {
		return ErrEmptyID
	}
	if state == nil {
		return ErrNilState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}

		if putErr := b.Put([]byte(id), data); putErr != nil {
			return fmt.Errorf("failed to store state: %w", putErr)
		}

		return nil
	})
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

// memoryStore implements Store using an in-memory map.
// Useful for testing.
type memoryStore struct {
	states map[string]*State
	mu     sync.RWMutex
}

// NewMemoryStore creates an in-memory store.
//
// Returns a configured Store.
// Useful for testing or when persistence is not needed.
func NewMemoryStore() Store {
	return &memoryStore{
		states: make(map[string]*State),
	}
}

// Load implements Store.Load.
func (s *memoryStore) Load(id string) (*State, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.states[id]
	if !exists {
		return &State{}, nil
	}

	return state.Clone(), nil
}

// Save implements Store.Save.
func (s *memoryStore) Save(id string, state *State) error {
	if id == "" {
		return ErrEmptyID
	}
	if state == nil {
		return ErrNilState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[id] = state.Clone()
	return nil
}

// Close implements Store.Close.
func (s *memoryStore) Close() error {
	return nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
