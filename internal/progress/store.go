// Package progress persists per-question mastery state across sessions.
// The backing store is a single versioned JSON snapshot keyed by deck key
// and question id; every write replaces the whole file atomically.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Version is the current progress file schema version.
const Version = 1

// NeverScored marks a question that has been reset or never checked.
const NeverScored = -1

// ErrCorrupt is returned by Load together with an empty DB when the backing
// file exists but cannot be parsed. Corrupt history is never fatal; callers
// should log the degradation and continue with a clean slate.
var ErrCorrupt = errors.New("progress file corrupt")

// Record is the persisted state of one question.
type Record struct {
	Mastered  bool  `json:"mastered"`
	Attempts  int   `json:"attempts"`
	Fails     int   `json:"fails"`
	Points    int   `json:"points"` // last score in [0,100], NeverScored if none
	UpdatedAt int64 `json:"updated_at"`
}

// DeckProgress holds the records of a single deck, keyed by question id.
type DeckProgress struct {
	Questions map[string]Record `json:"questions"`
}

// DB is the full progress structure, keyed by deck key.
type DB struct {
	Version int                      `json:"version"`
	Decks   map[string]*DeckProgress `json:"decks"`
}

// NewDB returns an empty progress database.
func NewDB() *DB {
	return &DB{
		Version: Version,
		Decks:   make(map[string]*DeckProgress),
	}
}

// Get looks up the record for a question, reporting whether one exists.
func (db *DB) Get(deckKey, questionID string) (Record, bool) {
	dp, ok := db.Decks[deckKey]
	if !ok || dp.Questions == nil {
		return Record{}, false
	}
	rec, ok := dp.Questions[questionID]
	return rec, ok
}

// Set stores the record for a question, creating the deck entry as needed.
func (db *DB) Set(deckKey, questionID string, rec Record) {
	if db.Decks == nil {
		db.Decks = make(map[string]*DeckProgress)
	}
	dp, ok := db.Decks[deckKey]
	if !ok {
		dp = &DeckProgress{Questions: make(map[string]Record)}
		db.Decks[deckKey] = dp
	}
	if dp.Questions == nil {
		dp.Questions = make(map[string]Record)
	}
	dp.Questions[questionID] = rec
}

// Store is the persistence interface the review session writes through.
type Store interface {
	// Load reads the snapshot. A missing file yields an empty DB and no
	// error; an unreadable or unparsable file yields an empty DB and an
	// error wrapping ErrCorrupt.
	Load() (*DB, error)
	// Save replaces the whole snapshot on disk.
	Save(db *DB) error
	// Persist updates one record with a fresh timestamp and saves.
	Persist(db *DB, deckKey, questionID string, rec Record) error
}

// FileStore implements Store on a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (fs *FileStore) Load() (*DB, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDB(), nil
		}
		return NewDB(), fmt.Errorf("%w: reading %s: %v", ErrCorrupt, fs.path, err)
	}
	if len(data) == 0 {
		return NewDB(), nil
	}

	var db DB
	if err := json.Unmarshal(data, &db); err != nil {
		return NewDB(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if db.Decks == nil {
		db.Decks = make(map[string]*DeckProgress)
	}
	db.Version = Version
	return &db, nil
}

// Save implements Store. The snapshot is written to a temporary file and
// renamed into place so a crash mid-write leaves the previous file intact.
func (fs *FileStore) Save(db *DB) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.save(db)
}

func (fs *FileStore) save(db *DB) error {
	if db.Decks == nil {
		db.Decks = make(map[string]*DeckProgress)
	}
	db.Version = Version

	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}

	tempFile := fs.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary progress file: %w", err)
	}
	if err := os.Rename(tempFile, fs.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

// Persist implements Store.
func (fs *FileStore) Persist(db *DB, deckKey, questionID string, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec.UpdatedAt = timeNow().Unix()
	db.Set(deckKey, questionID, rec)
	return fs.save(db)
}

// Variable to allow mocking time.Now in tests.
var timeNow = time.Now
