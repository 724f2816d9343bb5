package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/switchtube/internal/domain"
)

var bucketUploads = []byte("uploads")

// UploadStore implements domain.SessionStore using BoltDB.
type UploadStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// Sessions are few and small, so every read is served from memory once loaded
	cache map[string][]byte
}

// NewUploadStore opens (or creates) the session database at dbPath.
// An empty path keeps sessions in memory only.
func NewUploadStore(dbPath string) (*UploadStore, error) {
	if dbPath == "" {
		return &UploadStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUploads)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &UploadStore{db: db, cache: make(map[string][]byte)}, nil
}

// Fingerprint identifies a local source file so an interrupted upload of the
// same bytes to the same server can find its session again.
func Fingerprint(serverURL, sourceURI string, size int64, modTime time.Time) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	h := sha256.New()
	for _, part := range []string{normalized, sourceURI, strconv.FormatInt(size, 10), strconv.FormatInt(modTime.UnixNano(), 10)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func (s *UploadStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *UploadStore) get(key string, dest interface{}) bool {
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketUploads).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *UploadStore) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUploads).Put([]byte(key), data)
	})
}

func (s *UploadStore) delete(key string) error {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUploads).Delete([]byte(key))
	})
}

// === Sessions ===

func (s *UploadStore) GetSession(key string) (domain.UploadSession, bool) {
	var session domain.UploadSession
	ok := s.get(key, &session)
	return session, ok
}

func (s *UploadStore) SaveSession(key string, session domain.UploadSession) error {
	return s.set(key, session)
}

func (s *UploadStore) DeleteSession(key string) error {
	return s.delete(key)
}

// ListSessions returns every stored session keyed by fingerprint.
// Entries that no longer decode are skipped.
func (s *UploadStore) ListSessions() (map[string]domain.UploadSession, error) {
	raw := make(map[string][]byte)

	if s.db == nil {
		s.mu.RLock()
		for k, v := range s.cache {
			raw[k] = v
		}
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketUploads).ForEach(func(k, v []byte) error {
				raw[string(k)] = append([]byte(nil), v...)
				return nil
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
	}

	sessions := make(map[string]domain.UploadSession, len(raw))
	for k, data := range raw {
		var session domain.UploadSession
		if json.Unmarshal(data, &session) == nil {
			sessions[k] = session
		}
	}
	return sessions, nil
}

// Compile-time interface check
var _ domain.SessionStore = (*UploadStore)(nil)
