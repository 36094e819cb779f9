// Package store persists the day-scoped delivery history: the set of
// message keys already delivered today plus the audit log of what was
// sent where. Exactly one day's file is retained on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

const filePattern = "messages_*.json"

// legacyStoreFile predates the per-day layout; clearing history resets
// it too so old installs do not resurrect stale state.
const legacyStoreFile = "sent_codes_store.json"

type dailyDoc struct {
	Day      string                  `json:"day"`
	SeenKeys []string                `json:"seen_keys"`
	Sent     []models.DeliveryRecord `json:"sent"`
}

// Store is the dedup store for one active day. Not safe for concurrent
// use; the orchestrator owns it from a single goroutine.
type Store struct {
	dir  string
	day  string
	seen map[string]struct{}
	doc  dailyDoc
	log  zerolog.Logger
}

// Open loads (or creates empty) the store for day and removes every
// other day's file.
func Open(dir, day string, log zerolog.Logger) *Store {
	s := &Store{dir: dir, log: log}
	s.Rotate(day)
	return s
}

// Day is the calendar day this store covers.
func (s *Store) Day() string { return s.day }

// IsNew reports whether the key has not been delivered today.
func (s *Store) IsNew(key string) bool {
	_, seen := s.seen[key]
	return !seen
}

// MarkSent records a confirmed delivery: the key joins the seen set and
// the audit record is appended, committed in a single file write. Only
// call after at least one destination acknowledged the message.
func (s *Store) MarkSent(key string, rec models.DeliveryRecord) error {
	if _, dup := s.seen[key]; !dup {
		s.seen[key] = struct{}{}
		s.doc.SeenKeys = append(s.doc.SeenKeys, key)
	}
	s.doc.Sent = append(s.doc.Sent, rec)
	return s.persist()
}

// Rotate switches the store to a new day: loads or creates that day's
// file, resets the seen set, and deletes every other retained day.
func (s *Store) Rotate(day string) {
	s.day = day
	s.cleanup()
	s.doc = s.load()
	s.seen = make(map[string]struct{}, len(s.doc.SeenKeys))
	for _, k := range s.doc.SeenKeys {
		s.seen[k] = struct{}{}
	}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, fmt.Sprintf("messages_%s.json", s.day))
}

func (s *Store) load() dailyDoc {
	empty := dailyDoc{Day: s.day, SeenKeys: []string{}, Sent: []models.DeliveryRecord{}}
	data, err := os.ReadFile(s.path())
	if err != nil {
		return empty
	}
	var doc dailyDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.SeenKeys == nil || doc.Sent == nil {
		s.log.Warn().Str("file", s.path()).Msg("daily store unreadable, starting empty")
		return empty
	}
	doc.Day = s.day
	return doc
}

func (s *Store) persist() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), append(data, '\n'), 0o644)
}

// cleanup removes every daily file except the active day's.
func (s *Store) cleanup() {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return
	}
	keep := s.path()
	matches, err := filepath.Glob(filepath.Join(s.dir, filePattern))
	if err != nil {
		return
	}
	for _, p := range matches {
		if p == keep {
			continue
		}
		if err := os.Remove(p); err != nil {
			s.log.Warn().Err(err).Str("file", p).Msg("failed to remove old daily store")
		}
	}
}

// ClearDay deletes the persisted store for one day. Reports whether a
// file existed.
func ClearDay(dir, day string) (bool, error) {
	p := filepath.Join(dir, fmt.Sprintf("messages_%s.json", day))
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClearAll deletes every day's persisted store and resets the legacy
// aggregate file when present.
func ClearAll(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, filePattern))
	if err != nil {
		return err
	}
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	legacy := filepath.Join(filepath.Dir(dir), legacyStoreFile)
	if _, err := os.Stat(legacy); err == nil {
		return os.WriteFile(legacy, []byte("{\n  \"by_start_date\": {}\n}\n"), 0o644)
	}
	return nil
}
