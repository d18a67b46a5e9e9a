package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
const (
	BucketAuditLog     = "audit_log"
	BucketRevisions    = "config_revisions"
	BucketStatusEvents = "status_events"
	BucketPreferences  = "preferences"
)

// AllBuckets returns all bucket names
var AllBuckets = []string{
	BucketAuditLog,
	BucketRevisions,
	BucketStatusEvents,
	BucketPreferences,
}

// initBuckets creates all required buckets
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range AllBuckets {
			_, err := tx.CreateBucketIfNotExists([]byte(bucket))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// timeKey builds a lexicographically time-ordered bucket key, so cursor
// scans walk records chronologically. The id suffix keeps same-instant
// records apart.
func timeKey(t time.Time, id string) string {
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return t.UTC().Format(time.RFC3339Nano) + "-" + suffix
}

// AuditEntry is one recorded administrative action.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Details   string    `json:"details,omitempty"`
	User      string    `json:"user,omitempty"`
	IP        string    `json:"ip,omitempty"`
}

// AddAuditEntry appends an entry to the audit log.
func (s *Storage) AddAuditEntry(entry AuditEntry) error {
	return s.SetJSON(BucketAuditLog, timeKey(entry.Timestamp, entry.ID), entry)
}

// LatestAuditEntries returns up to limit audit entries, newest first.
func (s *Storage) LatestAuditEntries(limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := s.latest(BucketAuditLog, limit, func(v []byte) {
		var entry AuditEntry
		if json.Unmarshal(v, &entry) == nil {
			entries = append(entries, entry)
		}
	})
	return entries, err
}

// Revision is the managed file's full text captured at one successful save,
// before the save replaced it.
type Revision struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	User      string    `json:"user,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// AddRevision stores a configuration revision.
func (s *Storage) AddRevision(rev Revision) error {
	return s.SetJSON(BucketRevisions, timeKey(rev.Timestamp, rev.ID), rev)
}

// LatestRevisions returns up to limit revisions, newest first.
func (s *Storage) LatestRevisions(limit int) ([]Revision, error) {
	var revs []Revision
	err := s.latest(BucketRevisions, limit, func(v []byte) {
		var rev Revision
		if json.Unmarshal(v, &rev) == nil {
			revs = append(revs, rev)
		}
	})
	return revs, err
}

// GetRevision returns the revision with the given ID.
func (s *Storage) GetRevision(id string) (Revision, error) {
	var found *Revision
	err := s.latest(BucketRevisions, 0, func(v []byte) {
		if found != nil {
			return
		}
		var rev Revision
		if json.Unmarshal(v, &rev) == nil && rev.ID == id {
			found = &rev
		}
	})
	if err != nil {
		return Revision{}, err
	}
	if found == nil {
		return Revision{}, fmt.Errorf("revision %s not found", id)
	}
	return *found, nil
}

// RetainRevisions drops the oldest revisions beyond max.
func (s *Storage) RetainRevisions(max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketRevisions))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketRevisions)
		}
		excess := b.Stats().KeyN - max
		if excess <= 0 {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// StatusEvent records one status transition of the managed unit.
type StatusEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// AddStatusEvent appends a unit status transition.
func (s *Storage) AddStatusEvent(event StatusEvent) error {
	return s.SetJSON(BucketStatusEvents, timeKey(event.Timestamp, event.ID), event)
}

// LatestStatusEvents returns up to limit transitions, newest first.
func (s *Storage) LatestStatusEvents(limit int) ([]StatusEvent, error) {
	var events []StatusEvent
	err := s.latest(BucketStatusEvents, limit, func(v []byte) {
		var event StatusEvent
		if json.Unmarshal(v, &event) == nil {
			events = append(events, event)
		}
	})
	return events, err
}

// Preferences holds the browser UI's persisted settings.
type Preferences struct {
	Theme       string `json:"theme"`
	RefreshRate int    `json:"refresh_rate"`
	LogLines    int    `json:"log_lines"`
}

const preferencesKey = "ui"

// GetPreferences returns the stored UI preferences, zero-valued when none
// were saved yet.
func (s *Storage) GetPreferences() (Preferences, error) {
	var p Preferences
	err := s.GetJSON(BucketPreferences, preferencesKey, &p)
	return p, err
}

// SetPreferences stores the UI preferences.
func (s *Storage) SetPreferences(p Preferences) error {
	return s.SetJSON(BucketPreferences, preferencesKey, p)
}

// Sweep applies the retention policy to the time-series buckets.
func (s *Storage) Sweep(retention time.Duration, maxRevisions int) error {
	if err := s.DeleteOlderThan(BucketAuditLog, retention); err != nil {
		return err
	}
	if err := s.DeleteOlderThan(BucketStatusEvents, retention); err != nil {
		return err
	}
	return s.RetainRevisions(maxRevisions)
}
